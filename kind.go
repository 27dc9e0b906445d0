package defender

import "strings"

// Kind is the closed set of value categories a property can hold.
type Kind int

const (
	KindNumber        Kind = iota // Any Go integer/float or json.Number; bounds apply to the value.
	KindString                    // Text; bounds apply to the rune count.
	KindList                      // Slice or array; bounds apply to the element count.
	KindMap                       // Map or Projector; bounds apply to the key count.
	KindUniqueToken               // System generated, immutable once set; bounds ignored.
	KindDateTime                  // time.Time or epoch milliseconds; bounds apply to epoch milliseconds.
	KindAutoTimestamp             // Like KindDateTime but refreshed on every update of the owning Data.
	KindBoolean                   // true or false; bounds ignored.
)

var kindNames = [...]string{
	KindNumber:        "number",
	KindString:        "string",
	KindList:          "list",
	KindMap:           "map",
	KindUniqueToken:   "unique",
	KindDateTime:      "datetime",
	KindAutoTimestamp: "modtime",
	KindBoolean:       "boolean",
}

// kindAliases accepts the spellings used by schema files.
var kindAliases = map[string]Kind{
	"num":       KindNumber,
	"str":       KindString,
	"arr":       KindList,
	"array":     KindList,
	"obj":       KindMap,
	"object":    KindMap,
	"date":      KindDateTime,
	"mod":       KindAutoTimestamp,
	"timestamp": KindAutoTimestamp,
	"bool":      KindBoolean,
}

// Valid reports whether k is a member of the enumeration.
func (k Kind) Valid() bool { return k >= KindNumber && k <= KindBoolean }

func (k Kind) String() string {
	if !k.Valid() {
		return "invalid"
	}
	return kindNames[k]
}

// isDate reports whether values of k are stored as epoch milliseconds.
func (k Kind) isDate() bool { return k == KindDateTime || k == KindAutoTimestamp }

// ParseKind resolves a kind name ("string", "datetime", ...) case-insensitively.
// Unknown names fail with invalid_type.
func ParseKind(name string) (Kind, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for k, s := range kindNames {
		if s == n {
			return Kind(k), nil
		}
	}
	if k, ok := kindAliases[n]; ok {
		return k, nil
	}
	return 0, issueAt(CodeInvalidType, "", name)
}
