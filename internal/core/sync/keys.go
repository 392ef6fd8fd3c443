package sync

import "strconv"

// keys is the static dictionary shared by producer and consumer. A key's code
// is its index in base 36. Entries may only be appended.
var keys = []string{
	"type",
	"data",
	"id",
	"name",
	"SyncEvent",
	"InitialSyncEvent",
	"worldData",
	"playerData",
	"entities",
	"deleted",
	"boundingBox",
	"x",
	"y",
	"width",
	"height",
	"position",
	"velocity",
	"acceleration",
	"mass",
	"friction",
	"bounce",
	"collisionLayer",
	"isVisible",
	"isCollidable",
	"doSync",
	"Entity",
	"Unit",
	"Hero",
	"Geometry",
	"angle",
	"speed",
	"thrusting",
	"players",
	"heroID",
	"score",
	"hasJoined",
	"SetNameEvent",
	"InputEvent",
	"ResyncRequestEvent",
	"BatchEvent",
	"events",
	"full",
	"checksum",
	"PlayerJoinEvent",
	"PlayerLeaveEvent",
	"CollisionEvent",
	"collider",
	"collided",
	"target",
	"Wall",
	"Feed",
}

var (
	keyToCode = make(map[string]string, len(keys))
	codeToKey = make(map[string]string, len(keys))
)

func init() {
	for i, k := range keys {
		code := strconv.FormatInt(int64(i), 36)
		keyToCode[k] = code
		codeToKey[code] = k
	}
}

// CompressKey returns the dictionary code of key, or key wrapped in quotes when
// it is not in the dictionary.
func CompressKey(key string) string {
	if code, ok := keyToCode[key]; ok {
		return code
	}
	return quote(key)
}

// DecompressKey reverses CompressKey. Unknown codes are passed through.
func DecompressKey(code string) string {
	if len(code) >= 2 && code[0] == '"' && code[len(code)-1] == '"' {
		if s, ok := unquote(code); ok {
			return s
		}
	}
	if key, ok := codeToKey[code]; ok {
		return key
	}
	return code
}

// lookupCode reports whether code names a dictionary entry.
func lookupCode(code string) (string, bool) {
	key, ok := codeToKey[code]
	return key, ok
}

func quote(s string) string {
	out := make([]byte, 0, len(s)+2)
	out = append(out, '"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(append(out, '"'))
}

func unquote(s string) (string, bool) {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return "", false
	}
	body := s[1 : len(s)-1]
	out := make([]byte, 0, len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c == '\\' {
			i++
			if i >= len(body) {
				return "", false
			}
			c = body[i]
		} else if c == '"' {
			return "", false
		}
		out = append(out, c)
	}
	return string(out), true
}
