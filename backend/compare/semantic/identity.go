package semantic

import (
	"fmt"
	"strconv"

	"github.com/mitchellh/hashstructure"

	"github.com/luxury-yacht/driftcheck/backend/compare/model"
)

// IdentityFields are consulted in order to pair list elements across sides.
var IdentityFields = []string{"name", "containerPort", "port", "ip", "key"}

const hashIdentityPrefix = "hash:"

// Identity derives the pairing key for a structured list element: the first scalar
// identity field present, else a hash of the whole element. Hashed elements only pair
// when their content is identical.
func Identity(elem model.Value) string {
	for _, field := range IdentityFields {
		candidate := elem.Get(field)
		if candidate.Kind() == model.KindScalar {
			return candidate.String()
		}
	}
	return hashIdentity(elem)
}

func hashIdentity(elem model.Value) string {
	sum, err := hashstructure.Hash(elem.Canonical(), nil)
	if err != nil {
		return hashIdentityPrefix + elem.String()
	}
	return hashIdentityPrefix + strconv.FormatUint(sum, 16)
}

// indexByIdentity maps identity to element. Repeated identities on one side get a
// "#n" suffix so each element is reported exactly once.
func indexByIdentity(seq model.Value) map[string]model.Value {
	out := make(map[string]model.Value, seq.Len())
	counts := make(map[string]int, seq.Len())
	for _, item := range seq.Items() {
		if item.IsNull() {
			continue
		}
		id := Identity(item)
		counts[id]++
		if n := counts[id]; n > 1 {
			id = fmt.Sprintf("%s#%d", id, n)
		}
		out[id] = item
	}
	return out
}
