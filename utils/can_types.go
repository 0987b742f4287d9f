package utils

import "sort"

// Frame directions as listed in the CSV map. RX frames are drive status
// broadcasts; TX frames are command frames this service emits.
const (
	DirectionRx = "rx"
	DirectionTx = "tx"
)

type SignalDef struct {
	Name       string
	StartBit   int
	BitLength  int
	Signed     bool
	Factor     float64
	Offset     float64
	Min        float64
	Max        float64
	Default    float64
	Unit       string
	Comment    string
	Endianness string // "little" or "big"; big must be byte-aligned
}

type FrameDef struct {
	ID        uint32
	Extended  bool // 29-bit identifier (VESC always uses extended IDs)
	Name      string
	DLC       int
	Direction string
	CycleMS   int
	Signals   []SignalDef
}

// FrameMap indexes the CSV-defined frames both ways: by name for
// encoding commands, by ID for decoding status broadcasts.
type FrameMap struct {
	ByID   map[uint32]*FrameDef
	ByName map[string]*FrameDef
}

func (m *FrameMap) FrameNames() []string {
	out := make([]string, 0, len(m.ByName))
	for k := range m.ByName {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
