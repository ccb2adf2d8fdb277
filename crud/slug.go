package crud

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
)

// slugTokenLength is the length of the random base-36 token appended to
// every slug. Six characters give 36^6 (~2.2 billion) possible tokens,
// which makes collisions practically impossible without a uniqueness
// query against the articles table.
const slugTokenLength = 6

// slugTokenMax is 36^slugTokenLength.
var slugTokenMax = big.NewInt(2176782336)

// makeSlug derives a URL-safe, human-readable slug from an article title.
// The title part is lowercased and hyphenated, the token part is random.
// A title edit mints an entirely new slug, fresh token included, so a
// retitled article always changes its URL.
func makeSlug(title string) string {
	text := slugify(title)
	if text == "" {
		return slugToken()
	}
	return text + "-" + slugToken()
}

// slugify lowercases the title and collapses every run of characters
// that is not a-z or 0-9 into a single hyphen.
func slugify(title string) string {
	var b strings.Builder
	hyphen := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			if hyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			hyphen = false
			b.WriteRune(r)
		default:
			hyphen = true
		}
	}
	return b.String()
}

// slugToken returns a random base-36 string of exactly slugTokenLength
// characters, zero-padded on the left.
func slugToken() string {
	n, err := rand.Int(rand.Reader, slugTokenMax)
	if err != nil {
		// crypto/rand only fails when the OS entropy source is broken.
		panic(err)
	}
	token := strconv.FormatInt(n.Int64(), 36)
	if len(token) < slugTokenLength {
		token = strings.Repeat("0", slugTokenLength-len(token)) + token
	}
	return token
}
