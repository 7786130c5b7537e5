// Package i18n holds the localized strings of the greeting widget.
//
// Built-in strings cover English, Korean and Japanese. A YAML override file
// can replace any of them or add new locales; it is loaded into an x/text
// catalog and can be swapped at runtime when the file changes.
package i18n

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/greeter/internal/errors"
)

const (
	keyGreeting    = "widget.greeting"
	keyDescription = "widget.description"
)

// Strings are the texts shown by the widget for one locale. Greeting must
// contain exactly one %s verb, which receives the name.
type Strings struct {
	Greeting    string `yaml:"greeting"`
	Description string `yaml:"description"`
}

var builtin = map[string]Strings{
	"en": {
		Greeting:    "Hello, %s!",
		Description: "This greeting was rendered from properties sent by the host application.",
	},
	"ko": {
		Greeting:    "안녕하세요, %s 님!",
		Description: "호스트 애플리케이션으로부터 데이터를 받았습니다.",
	},
	"ja": {
		Greeting:    "こんにちは、%sさん！",
		Description: "ホストアプリケーションからデータを受け取りました。",
	},
}

type state struct {
	tags    []language.Tag
	matcher language.Matcher
	catalog catalog.Catalog
}

// Localizer resolves locales and formats widget strings. It is safe for
// concurrent use.
type Localizer struct {
	mu       sync.RWMutex
	fallback language.Tag
	state    *state
}

// New builds a localizer whose fallback is defaultLocale. overrides may be nil.
func New(defaultLocale string, overrides map[string]Strings) (*Localizer, error) {
	fallback, err := language.Parse(defaultLocale)
	if err != nil {
		return nil, errors.WrapConfig(err, "LOCALE_INVALID", fmt.Sprintf("invalid default locale %q", defaultLocale))
	}

	l := &Localizer{fallback: fallback}
	st, err := l.build(overrides)
	if err != nil {
		return nil, err
	}
	l.state = st

	return l, nil
}

func (l *Localizer) build(overrides map[string]Strings) (*state, error) {
	merged := make(map[language.Tag]Strings, len(builtin)+len(overrides))
	for locale, s := range builtin {
		merged[language.MustParse(locale)] = s
	}

	for locale, o := range overrides {
		tag, err := language.Parse(locale)
		if err != nil {
			return nil, errors.NewValidationError("CATALOG_LOCALE", fmt.Sprintf("invalid locale %q in catalog", locale)).
				WithContext("cause", err.Error())
		}
		if o.Greeting != "" && strings.Count(o.Greeting, "%s") != 1 {
			return nil, errors.NewValidationError("CATALOG_GREETING",
				fmt.Sprintf("greeting for %q must contain exactly one %%s", locale))
		}

		s := merged[tag]
		if o.Greeting != "" {
			s.Greeting = o.Greeting
		}
		if o.Description != "" {
			s.Description = o.Description
		}
		merged[tag] = s
	}

	base, ok := merged[l.fallback]
	if !ok {
		base = builtin["en"]
	}

	// fallback first: the matcher returns index 0 when nothing matches
	tags := []language.Tag{l.fallback}
	others := make([]language.Tag, 0, len(merged))
	for tag := range merged {
		if tag != l.fallback {
			others = append(others, tag)
		}
	}
	sort.Slice(others, func(i, j int) bool { return others[i].String() < others[j].String() })
	tags = append(tags, others...)

	b := catalog.NewBuilder(catalog.Fallback(l.fallback))
	for _, tag := range tags {
		s := merged[tag]
		if s.Greeting == "" {
			s.Greeting = base.Greeting
		}
		if s.Description == "" {
			s.Description = base.Description
		}
		if err := b.SetString(tag, keyGreeting, s.Greeting); err != nil {
			return nil, errors.NewInternalError("CATALOG_BUILD", "failed to add greeting", err)
		}
		if err := b.SetString(tag, keyDescription, strings.ReplaceAll(s.Description, "%", "%%")); err != nil {
			return nil, errors.NewInternalError("CATALOG_BUILD", "failed to add description", err)
		}
	}

	return &state{
		tags:    tags,
		matcher: language.NewMatcher(tags),
		catalog: b,
	}, nil
}

func (l *Localizer) current() *state {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Default is the tag used when no preference matches.
func (l *Localizer) Default() language.Tag {
	return l.fallback
}

// Supported lists the locales the catalog can render, fallback first.
func (l *Localizer) Supported() []language.Tag {
	st := l.current()
	out := make([]language.Tag, len(st.tags))
	copy(out, st.tags)
	return out
}

// Match picks the best supported locale for the given preferences. Each
// preference is a language tag or an Accept-Language header value; empty
// and unparsable values are ignored.
func (l *Localizer) Match(prefs ...string) language.Tag {
	var desired []language.Tag
	for _, p := range prefs {
		if strings.TrimSpace(p) == "" {
			continue
		}
		tags, _, err := language.ParseAcceptLanguage(p)
		if err != nil {
			continue
		}
		desired = append(desired, tags...)
	}

	st := l.current()
	if len(desired) == 0 {
		return l.fallback
	}

	_, idx, conf := st.matcher.Match(desired...)
	if conf == language.No {
		return l.fallback
	}
	return st.tags[idx]
}

// Resolve maps tag onto the locale the current catalog renders it with. Tags
// the catalog no longer carries, e.g. after a reload dropped them, resolve to
// the default.
func (l *Localizer) Resolve(tag language.Tag) language.Tag {
	return l.resolve(l.current(), tag)
}

func (l *Localizer) resolve(st *state, tag language.Tag) language.Tag {
	_, idx, conf := st.matcher.Match(tag)
	if conf == language.No {
		return l.fallback
	}
	return st.tags[idx]
}

func (l *Localizer) printer(tag language.Tag) *message.Printer {
	st := l.current()
	return message.NewPrinter(l.resolve(st, tag), message.Catalog(st.catalog))
}

// Greeting formats the greeting line for name.
func (l *Localizer) Greeting(tag language.Tag, name string) string {
	return l.printer(tag).Sprintf(keyGreeting, name)
}

// Description returns the fixed line shown under the greeting.
func (l *Localizer) Description(tag language.Tag) string {
	return l.printer(tag).Sprintf(keyDescription)
}

// Reload replaces the overrides with the contents of path.
func (l *Localizer) Reload(path string) error {
	overrides, err := LoadOverrides(path)
	if err != nil {
		return err
	}

	st, err := l.build(overrides)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeValidation, "CATALOG_INVALID", "catalog rejected").WithFile(path)
	}

	l.mu.Lock()
	l.state = st
	l.mu.Unlock()

	return nil
}

// LoadOverrides reads a YAML catalog of the form
//
//	ko:
//	  greeting: "반갑습니다, %s 님!"
//	  description: "..."
func LoadOverrides(path string) (map[string]Strings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIOError("CATALOG_READ", "cannot read catalog", err).WithFile(path)
	}

	overrides := make(map[string]Strings)
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, errors.NewValidationError("CATALOG_PARSE", "catalog is not valid YAML").
			WithFile(path).
			WithContext("cause", err.Error())
	}

	return overrides, nil
}
