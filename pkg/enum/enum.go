package enum

type Strategy int

const (
	Atomic Strategy = iota
	ReadModifyWrite
)

func (s Strategy) String() string {
	return [...]string{"atomic", "read_modify_write"}[s]
}

func ParseStrategy(value string) (Strategy, bool) {
	switch value {
	case "", "atomic":
		return Atomic, true
	case "read_modify_write":
		return ReadModifyWrite, true
	default:
		return Atomic, false
	}
}
