package crypto

import (
	"math"
	"regexp"
	"strings"
	"unicode"
)

var (
	hasDigit  = regexp.MustCompile(`[0-9]`)
	hasLower  = regexp.MustCompile(`[a-z]`)
	hasUpper  = regexp.MustCompile(`[A-Z]`)
	hasBase64 = regexp.MustCompile(`[/+]`)
	hasOther  = regexp.MustCompile(`[^a-zA-Z0-9/+]`)
)

// Strength is the rating shown next to a password as it is typed.
type Strength struct {
	Entropy    float64
	Iterations int
	Rating     string
	Color      string
}

// EntropyCalc estimates the entropy of a password in bits. Characters are
// credited by the size of the character classes present; blacklisted words
// earn nothing, dictionary words earn one dictionary draw each, and repeated
// consecutive groups count once.
func EntropyCalc(password string) float64 {
	s := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, password)

	keyspace := 0
	if hasDigit.MatchString(s) {
		keyspace += 10
	}
	if hasLower.MatchString(s) {
		keyspace += 26
	}
	if hasUpper.MatchString(s) {
		keyspace += 26
	}
	if hasBase64.MatchString(s) {
		keyspace += 2
	}
	if hasOther.MatchString(s) {
		keyspace += 31
	}

	s = reduceVariants(s)

	lists := loadWordLists()
	for _, bad := range lists.black.FindAllString(s, -1) {
		s = strings.Replace(s, bad, "", 1)
	}

	var found []string
	seen := make(map[string]bool)
	for _, w := range lists.words.FindAllString(s, -1) {
		if !seen[w] {
			seen[w] = true
			found = append(found, w)
		}
	}
	for _, w := range found {
		s = strings.ReplaceAll(s, w, "")
	}

	s = collapseRepeats(s)

	wordBits := float64(len(found)) * math.Log(float64(lists.size))
	if s == "" {
		return wordBits / math.Ln2
	}
	return (float64(len([]rune(s)))*math.Log(float64(keyspace)) + wordBits) / math.Ln2
}

// KeyStrength maps a password to the scrypt cost exponent WiseHash uses:
// 1 for 120 bits or more, rising to 20 for 20 bits or less.
func KeyStrength(password string) int {
	return iterationsFor(EntropyCalc(password))
}

func iterationsFor(entropy float64) int {
	iter := int(math.Ceil(24 - entropy/5))
	if iter < 1 {
		return 1
	}
	if iter > 20 {
		return 20
	}
	return iter
}

// RateStrength returns the entropy, cost exponent and rating of a password.
func RateStrength(password string) Strength {
	e := EntropyCalc(password)
	st := Strength{Entropy: e, Iterations: iterationsFor(e)}
	switch {
	case e == 0:
		st.Rating, st.Color = "This is a known bad Password!", "magenta"
	case e < 20:
		st.Rating, st.Color = "Terrible!", "magenta"
	case e < 40:
		st.Rating, st.Color = "Weak!", "red"
	case e < 60:
		st.Rating, st.Color = "Medium", "darkorange"
	case e < 90:
		st.Rating, st.Color = "Good!", "green"
	case e < 120:
		st.Rating, st.Color = "Great!", "blue"
	default:
		st.Rating, st.Color = "Overkill  !!", "cyan"
	}
	return st
}

var variantReplacer = strings.NewReplacer(
	"ó", "0", "ò", "0", "ö", "0", "ô", "0", "õ", "0", "o", "0",
	"!", "1", "í", "1", "ì", "1", "ï", "1", "î", "1", "i", "1",
	"z", "2",
	"é", "3", "è", "3", "ë", "3", "ê", "3", "e", "3",
	"@", "4", "á", "4", "à", "4", "ä", "4", "â", "4", "ã", "4", "a", "4",
	"$", "5", "s", "5",
	"t", "7",
	"b", "8",
	"g", "9",
	"ú", "u", "ù", "u", "ü", "u", "û", "u",
)

// reduceVariants lowercases and folds look-alike characters so "P@ssw0rd"
// and "password" reduce to the same string.
func reduceVariants(s string) string {
	return variantReplacer.Replace(strings.ToLower(s))
}

// collapseRepeats replaces every run of a repeated group with one copy of
// the group, taking at each position the shortest group that repeats.
func collapseRepeats(s string) string {
	r := []rune(s)
	var out []rune
	for i := 0; i < len(r); {
		n := 0
		for l := 1; i+2*l <= len(r); l++ {
			if equalRunes(r[i:i+l], r[i+l:i+2*l]) {
				n = l
				break
			}
		}
		if n == 0 {
			out = append(out, r[i])
			i++
			continue
		}
		out = append(out, r[i:i+n]...)
		j := i + n
		for j+n <= len(r) && equalRunes(r[i:i+n], r[j:j+n]) {
			j += n
		}
		i = j
	}
	return string(out)
}

func equalRunes(a, b []rune) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
