package feed

// Kind 时间线类型（闭集，不做开放式继承）
type Kind string

const (
	KindHome     Kind = "home"
	KindPublic   Kind = "public"
	KindTag      Kind = "tag"
	KindGroup    Kind = "group"
	KindTrending Kind = "trending"
)

// Valid reports whether k is one of the closed set of timeline kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindHome, KindPublic, KindTag, KindGroup, KindTrending:
		return true
	}
	return false
}
