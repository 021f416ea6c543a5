package translation

import "strings"

// Dictionary is a fixed phrase list usable in both directions. Keys are
// matched after lowercasing and trimming.
type Dictionary struct {
	forward  map[string]string
	backward map[string]string
}

func NewDictionary(entries map[string]string) *Dictionary {
	d := &Dictionary{
		forward:  make(map[string]string, len(entries)),
		backward: make(map[string]string, len(entries)),
	}
	for source, target := range entries {
		d.forward[normalize(source)] = target
		key := normalize(target)
		// Several sources share a target ("hi", "hello"); the lexically
		// smallest source wins.
		if existing, ok := d.backward[key]; !ok || source < existing {
			d.backward[key] = source
		}
	}
	return d
}

func (d *Dictionary) Lookup(text string, dir Direction) (string, bool) {
	if d == nil {
		return "", false
	}
	table := d.forward
	if dir == TargetToSource {
		table = d.backward
	}
	value, ok := table[normalize(text)]
	return value, ok
}

func (d *Dictionary) Len() int {
	if d == nil {
		return 0
	}
	return len(d.forward)
}

func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// DefaultDictionary holds common English to Spanish phrases.
func DefaultDictionary() *Dictionary {
	return NewDictionary(map[string]string{
		"hello":          "hola",
		"hi":             "hola",
		"goodbye":        "adiós",
		"good morning":   "buenos días",
		"good afternoon": "buenas tardes",
		"good night":     "buenas noches",

		"thank you":      "gracias",
		"thanks":         "gracias",
		"please":         "por favor",
		"excuse me":      "disculpe",
		"sorry":          "lo siento",
		"you're welcome": "de nada",

		"water":  "agua",
		"food":   "comida",
		"house":  "casa",
		"car":    "coche",
		"dog":    "perro",
		"cat":    "gato",
		"book":   "libro",
		"school": "escuela",
		"work":   "trabajo",
		"family": "familia",
		"friend": "amigo",
		"money":  "dinero",
		"time":   "tiempo",
		"love":   "amor",

		"how are you?":        "¿cómo estás?",
		"what is your name?":  "¿cómo te llamas?",
		"where are you from?": "¿de dónde eres?",
		"how much?":           "¿cuánto cuesta?",
		"where is?":           "¿dónde está?",

		"one":   "uno",
		"two":   "dos",
		"three": "tres",
		"four":  "cuatro",
		"five":  "cinco",
	})
}
