package cart

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewID mints an opaque cart id of the form cart_<unix-millis>_<9 base36 chars>.
func NewID() string {
	var b strings.Builder
	b.WriteString("cart_")
	b.WriteString(strconv.FormatInt(time.Now().UnixMilli(), 10))
	b.WriteByte('_')
	for i := 0; i < 9; i++ {
		b.WriteByte(idAlphabet[rand.IntN(len(idAlphabet))])
	}
	return b.String()
}
