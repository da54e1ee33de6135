package charset

const (
	// Terminator ends every string entry.
	Terminator = 0xFF
	// wordPrefix introduces a two-byte code.
	wordPrefix = 0xF0
)

// glyphs maps single-byte codes to the text they render as.
var glyphs = map[uint16]string{
	0x00: "0", 0x01: "1", 0x02: "2", 0x03: "3", 0x04: "4",
	0x05: "5", 0x06: "6", 0x07: "7", 0x08: "8", 0x09: "9",
	0x0A: "A", 0x0B: "B", 0x0C: "C", 0x0D: "D", 0x0E: "E", 0x0F: "F",
	0x10: "G", 0x11: "H", 0x12: "I", 0x13: "J", 0x14: "K", 0x15: "L",
	0x16: "M", 0x17: "N", 0x18: "O", 0x19: "P", 0x1A: "Q", 0x1B: "R",
	0x1C: "S", 0x1D: "T", 0x1E: "U", 0x1F: "V", 0x20: "W", 0x21: "X",
	0x22: "Y", 0x23: "Z",
	0x24: "a", 0x25: "b", 0x26: "c", 0x27: "d", 0x28: "e", 0x29: "f",
	0x2A: "g", 0x2B: "h", 0x2C: "i", 0x2D: "j", 0x2E: "k", 0x2F: "l",
	0x30: "m", 0x31: "n", 0x32: "o", 0x33: "p", 0x34: "q", 0x35: "r",
	0x36: "s", 0x37: "t", 0x38: "u", 0x39: "v", 0x3A: "w", 0x3B: "x",
	0x3C: "y", 0x3D: "z",
	0x44: "?", 0x45: "!", 0x46: "/", 0x49: "-", 0x54: ",", 0x55: ".",
	0xFD: " ",
}

// controls maps codes without a printable form to the token names used in
// text as {NAME}.
var controls = map[uint16]string{
	0x41: "SQUARE",
	0x56: "BLANK",
	0x5B: "PLUS",
	0xFB: "X",
	0xFC: "NEWBOX",
	0xFE: "ENTER",
}

// words maps the two-byte dictionary codes to whole words.
var words = map[uint16]string{
	0xF000: "Akira",
	0xF006: "Digimon",
	0xF007: "you",
	0xF008: "the",
	0xF009: "Digi-Beetle",
	0xF00A: "Domain",
	0xF00B: "Guard",
	0xF00C: "Tamer",
	0xF00D: "here",
	0xF00E: "have",
	0xF00F: "Knights",
	0xF010: "and",
	0xF011: "thing",
	0xF012: "Security",
	0xF013: "that",
	0xF014: "Bertran",
	0xF015: "Tournament",
	0xF016: "Crimson",
	0xF018: "something",
	0xF019: "Item",
	0xF01A: "Falcon",
	0xF01B: "for",
	0xF01C: "That's",
	0xF01D: "Commander",
	0xF01E: "Blood",
	0xF01F: "Leader",
	0xF020: "Attendant",
	0xF021: "Cecilia",
	0xF022: "all",
	0xF023: "mission",
	0xF024: "this",
	0xF026: "Archive",
	0xF027: "Black",
	0xF028: "I'll",
	0xF029: "are",
	0xF02A: "Sword",
	0xF02B: "right",
	0xF02C: "Digivolve",
	0xF02D: "enter",
	0xF02E: "What",
	0xF02F: "will",
	0xF030: "come",
	0xF031: "You",
	0xF032: "Coliseum",
	0xF033: "about",
	0xF034: "don't",
	0xF035: "anything",
	0xF037: "Parts",
	0xF038: "where",
	0xF039: "The",
	0xF03A: "know",
	0xF03B: "Leomon",
	0xF03C: "want",
	0xF03D: "Oldman",
	0xF03E: "like",
	0xF03F: "need",
	0xF040: "Chief",
	0xF041: "with",
	0xF042: "Thank",
	0xF044: "Island",
	0xF045: "can",
	0xF046: "really",
	0xF047: "Blue",
	0xF048: "time",
}

var (
	runeCodes  = map[rune]uint16{}
	tokenCodes = map[string]uint16{}
)

func init() {
	for code, s := range glyphs {
		runeCodes[[]rune(s)[0]] = code
	}
	for code, name := range controls {
		tokenCodes[name] = code
	}
	for code, word := range words {
		tokenCodes[word] = code
	}
}
