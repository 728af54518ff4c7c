// Package names normalises Persian caller names and builds the spelling hint
// handed to the transcriber.
package names

import (
	"errors"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// Defaults seeds the transcription hint before any caller has been seen.
var Defaults = []string{
	"محمد",
	"محمدرضا",
	"علی",
	"زهرا",
	"فاطمه",
	"حسین",
	"رضا",
	"مریم",
	"سارا",
	"نیما",
}

const (
	promptHintLimit = 10

	basePrompt = "این تماس برای رزرو نوبت است. نام و نام‌خانوادگی فارسی مراجعه‌کننده را دقیق بنویس. " +
		"اگر در فایل فقط موسیقی، نویز یا صداهای مبهم شنیدی و گفتار واضح فارسی وجود نداشت، " +
		"خروجی را خالی بگذار و هیچ متنی تولید نکن."
)

var arabicToPersian = strings.NewReplacer(
	"ي", "ی", // yeh
	"ك", "ک", // kaf
)

// Normalize maps Arabic yeh and kaf to their Persian forms, trims, and
// collapses internal whitespace to single spaces.
func Normalize(name string) string {
	return strings.Join(strings.Fields(arabicToPersian.Replace(name)), " ")
}

// LoadNames reads common first names from path, separated by newlines, commas
// or semicolons. Tokens containing Latin letters are skipped. The result is
// normalised, deduplicated and sorted; Defaults is returned when the file is
// missing, unreadable or yields no names.
func LoadNames(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("path", path).Msg("Failed to read names file, using defaults")
		}
		return Defaults
	}

	seen := make(map[string]bool)
	var out []string
	tokens := strings.FieldsFunc(string(data), func(r rune) bool {
		return r == '\n' || r == ',' || r == ';'
	})
	for _, tok := range tokens {
		name := Normalize(tok)
		if name == "" || hasLatin(name) || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	if len(out) == 0 {
		return Defaults
	}

	sort.Strings(out)
	log.Debug().Int("names", len(out)).Str("path", path).Msg("Loaded common names")
	return out
}

func hasLatin(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool {
		return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
	}) != -1
}

// TranscriptionPrompt is TranscriptionPromptWith using Defaults as the common
// names.
func TranscriptionPrompt(known []string) string {
	return TranscriptionPromptWith(known, Defaults)
}

// TranscriptionPromptWith biases the transcriber toward correct name
// spellings. It lists the last ten known clients in sorted order, or the first
// ten common names when no client is known yet.
func TranscriptionPromptWith(known, common []string) string {
	hints := make([]string, len(known))
	copy(hints, known)
	sort.Strings(hints)
	if len(hints) > promptHintLimit {
		hints = hints[len(hints)-promptHintLimit:]
	}

	label := " برخی نام‌های قبلی: "
	if len(hints) == 0 {
		if len(common) == 0 {
			common = Defaults
		}
		hints = common
		if len(hints) > promptHintLimit {
			hints = hints[:promptHintLimit]
		}
		label = " چند نام رایج: "
	}
	return basePrompt + label + strings.Join(hints, "، ") + "."
}
