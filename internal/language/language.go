package language

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
)

// Language represents a supported language.
type Language struct {
	Tag    language.Tag
	Code   string // The CLI flag value
	Name   string
	Native string
}

func (l Language) String() string {
	return l.Code
}

var (
	English = Language{
		Tag:    language.English,
		Code:   "en",
		Name:   "English",
		Native: "English",
	}
	TraditionalChinese = Language{
		Tag:    language.TraditionalChinese,
		Code:   "zh-TW",
		Name:   "Chinese (Traditional)",
		Native: "繁體中文",
	}
)

var supported = []Language{English, TraditionalChinese}

// Supported returns the supported languages sorted by Name.
func Supported() []Language {
	out := append([]Language(nil), supported...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Parse resolves a code, BCP 47 tag, English name or native name.
// Chinese input is only accepted when it resolves to the Traditional script.
func Parse(input string) (Language, error) {
	needle := strings.TrimSpace(input)
	if needle == "" {
		return Language{}, fmt.Errorf("language is empty")
	}
	for _, l := range supported {
		if strings.EqualFold(l.Code, needle) || strings.EqualFold(l.Name, needle) || l.Native == needle {
			return l, nil
		}
	}
	if strings.EqualFold(needle, "traditional chinese") {
		return TraditionalChinese, nil
	}

	tag, err := language.Parse(needle)
	if err != nil {
		return Language{}, fmt.Errorf("unsupported language: %s", input)
	}
	base, _ := tag.Base()
	switch base.String() {
	case "en":
		return English, nil
	case "zh":
		script, _ := tag.Script()
		if script.String() == "Hant" {
			return TraditionalChinese, nil
		}
		return Language{}, fmt.Errorf("unsupported language: %s (only Traditional Chinese is supported)", input)
	}
	return Language{}, fmt.Errorf("unsupported language: %s", input)
}

// Opposite returns the other side of the English/Traditional Chinese pair.
func Opposite(l Language) Language {
	if l.Code == English.Code {
		return TraditionalChinese
	}
	return English
}
