// Package l10n resolves user-facing strings from embedded YAML catalogs.
package l10n

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var builtin embed.FS

// Args are the placeholder values substituted into a message. A placeholder
// is written as {name}.
type Args map[string]string

// Catalog holds the messages of every supported locale.
type Catalog struct {
	fallback string
	tags     []language.Tag
	names    []string
	matcher  language.Matcher
	messages map[string]map[string]string
}

// Default loads the embedded catalogs with fallback as the default locale.
func Default(fallback string) (*Catalog, error) {
	sub, err := fs.Sub(builtin, "locales")
	if err != nil {
		return nil, err
	}
	return Load(sub, fallback)
}

// Load reads every <locale>.yaml file at the root of fsys. Locales missing a
// key fall back to the default locale.
func Load(fsys fs.FS, fallback string) (*Catalog, error) {
	files, err := fs.Glob(fsys, "*.yaml")
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.New("l10n: no catalogs found")
	}
	sort.Strings(files)

	c := &Catalog{messages: make(map[string]map[string]string, len(files))}
	for _, name := range files {
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("l10n: read %s: %w", name, err)
		}
		msgs := map[string]string{}
		if err := yaml.Unmarshal(raw, &msgs); err != nil {
			return nil, fmt.Errorf("l10n: parse %s: %w", name, err)
		}
		locale := strings.TrimSuffix(path.Base(name), path.Ext(name))
		tag, err := language.Parse(locale)
		if err != nil {
			return nil, fmt.Errorf("l10n: bad locale %q: %w", locale, err)
		}
		c.messages[locale] = msgs
		c.tags = append(c.tags, tag)
		c.names = append(c.names, locale)
	}

	fallback = strings.TrimSpace(fallback)
	if fallback == "" {
		fallback = "en"
	}
	if _, ok := c.messages[fallback]; !ok {
		return nil, fmt.Errorf("l10n: default locale %q has no catalog", fallback)
	}
	c.fallback = fallback

	// The matcher prefers its first tag when nothing matches.
	for i, name := range c.names {
		if name == fallback && i != 0 {
			c.tags[0], c.tags[i] = c.tags[i], c.tags[0]
			c.names[0], c.names[i] = c.names[i], c.names[0]
			break
		}
	}
	c.matcher = language.NewMatcher(c.tags)
	return c, nil
}

// Default returns the default locale.
func (c *Catalog) Default() string {
	return c.fallback
}

// Locales lists the loaded locales, default first.
func (c *Catalog) Locales() []string {
	return append([]string(nil), c.names...)
}

// Match maps a client language code such as "ru-RU" to a loaded locale.
func (c *Catalog) Match(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return c.fallback
	}
	_, idx, conf := c.matcher.Match(language.Make(code))
	if conf == language.No {
		return c.fallback
	}
	return c.names[idx]
}

// Text resolves key for locale and substitutes args. Unknown locales use the
// default locale; unknown keys resolve to the key itself.
func (c *Catalog) Text(locale, key string, args Args) string {
	msg, ok := c.messages[locale][key]
	if !ok {
		msg, ok = c.messages[c.fallback][key]
	}
	if !ok {
		return key
	}
	if len(args) == 0 {
		return msg
	}
	pairs := make([]string, 0, len(args)*2)
	for k, v := range args {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}
