package auth

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// * Slugify строит slug компании: нижний регистр, обрезка пробелов, пробелы заменяются на дефис.
func Slugify(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(name))), "-")
}

func NormalizeName(name string) string {
	return cases.Title(language.Und).String(strings.Join(strings.Fields(name), " "))
}
