package processor

// Kind tags a work item with the processor responsible for it.
type Kind int

const (
	KindRaw Kind = iota + 1
	KindMesh
	KindTexture
	KindAudio
)

func (k Kind) String() string {
	switch k {
	case KindRaw:
		return "raw"
	case KindMesh:
		return "mesh"
	case KindTexture:
		return "texture"
	case KindAudio:
		return "audio"
	default:
		return "unknown"
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for _, k := range []Kind{KindRaw, KindMesh, KindTexture, KindAudio} {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}
