package voice

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/language"

	"github.com/seu-repo/vitrina-voz/pkg/textnorm"
)

// Language is the only language the grammar below understands.
var Language = language.Spanish

var numberWords = map[string]int{
	"un": 1, "uno": 1, "una": 1,
	"dos": 2, "tres": 3, "cuatro": 4, "cinco": 5,
	"seis": 6, "siete": 7, "ocho": 8, "nueve": 9, "diez": 10,
}

var articles = map[string]bool{
	"el": true, "la": true, "los": true, "las": true, "unos": true, "unas": true,
}

var (
	addVerbs = []string{
		"agrega", "agregar", "agrégame", "agregame", "agregue", "agregá",
		"añade", "añadir", "añádeme", "añademe", "pon", "ponme", "poner",
		"mete", "meter", "suma", "sumar",
	}
	buyVerbs = []string{
		"compra", "comprar", "cómprame", "comprame", "compre", "compro",
	}
	removeVerbs = []string{
		"quita", "quitar", "quítame", "quitame", "elimina", "eliminar",
		"borra", "borrar", "saca", "sacar", "remueve", "remover",
	}
	searchVerbs = []string{
		"busca", "buscar", "búscame", "buscame", "encuentra", "encuéntrame",
		"encuentrame", "muestra", "muéstrame", "muestrame", "mostrar",
	}
	// quantityConnectors introduce a bare number: "por 3", "agrega 2".
	quantityConnectors = append([]string{"por", "con", "de", "cantidad"},
		concat(addVerbs, buyVerbs, removeVerbs)...)

	// stopPhrases are removed from an utterance to leave the product name.
	stopPhrases = concat(
		[]string{
			"quiero comprar", "quiero", "quisiera", "me gustaría", "necesito", "por favor",
			"al carrito", "a mi carrito", "a el carrito", "en el carrito", "en mi carrito",
			"del carrito", "de mi carrito", "de el carrito", "el carrito", "mi carrito", "carrito",
			"unidades", "unidad", "piezas", "pieza",
		},
		addVerbs, buyVerbs, removeVerbs, searchVerbs,
	)
)

func concat(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

// alternation builds a regexp alternation, longest phrase first so that
// "al carrito" wins over "carrito".
func alternation(phrases []string) string {
	sorted := append([]string(nil), phrases...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i]) > len(sorted[j])
	})
	quoted := make([]string, len(sorted))
	for i, p := range sorted {
		quoted[i] = strings.ReplaceAll(regexp.QuoteMeta(p), " ", `\s+`)
	}
	return strings.Join(quoted, "|")
}

// wordPattern matches any phrase as whole words. Go's \b is ASCII-only, so
// boundaries are spelled out as whitespace or string edges.
func wordPattern(phrases ...string) *regexp.Regexp {
	return regexp.MustCompile(`(?:^|\s)(?:` + alternation(phrases) + `)(?:\s|$)`)
}

var punctuation = regexp.MustCompile(`[^\p{L}\p{N}\s\-]+`)

// prepare lowercases and strips punctuation; every rule runs on its output.
func prepare(text string) string {
	lowered := textnorm.Lower(Language, text)
	return textnorm.Squash(punctuation.ReplaceAllString(lowered, " "))
}
