package cnefe

import (
	"regexp"
	"strconv"
	"strings"
)

// numberWords spells out 0..31 in Portuguese, matching how OSM street names
// write small house and street numbers ("RUA 10" vs "RUA DEZ").
var numberWords = [32]string{
	"ZERO", "UM", "DOIS", "TRES", "QUATRO", "CINCO", "SEIS", "SETE",
	"OITO", "NOVE", "DEZ", "ONZE", "DOZE", "TREZE", "QUATORZE", "QUINZE",
	"DEZESSEIS", "DEZESSETE", "DEZOITO", "DEZENOVE", "VINTE", "VINTE E UM",
	"VINTE E DOIS", "VINTE E TRES", "VINTE E QUATRO", "VINTE E CINCO",
	"VINTE E SEIS", "VINTE E SETE", "VINTE E OITO", "VINTE E NOVE",
	"TRINTA", "TRINTA E UM",
}

var digitRun = regexp.MustCompile(`[0-9]+`)

// Normalize canonicalizes a free-text address name: uppercase, then every
// maximal digit run in [0,31] replaced by its Portuguese spelling. Numbers
// above 31 keep their digits.
//
// The replacement is a plain substring replacement over the whole name, not
// token-bounded: a later number sharing the same digit substring is affected
// too ("RUA 1 LOTE 12" becomes "RUA UM LOTE UM2"). Callers rely on this
// exact behavior for cache-key stability, so it must not be "fixed" to be
// word-boundary-aware.
func Normalize(name string) string {
	name = strings.ToUpper(name)
	for _, run := range digitRun.FindAllString(name, -1) {
		n, err := strconv.Atoi(run)
		if err != nil || n > 31 {
			continue
		}
		name = strings.ReplaceAll(name, run, numberWords[n])
	}
	return name
}
