package sentiment

// keywordTiers holds one polarity's keywords grouped by weight.
type keywordTiers struct {
	strong []string
	medium []string
	weak   []string
}

const (
	strongWeight = 2.0
	mediumWeight = 1.0
	weakWeight   = 0.3
)

// Keywords cover English and Indonesian, the two languages the review
// sources mix. Matching is a lower-cased substring presence test.
var positiveWords = keywordTiers{
	strong: []string{
		"excellent", "perfect", "amazing", "outstanding", "the best",
		"luar biasa", "sangat bagus", "terbaik", "sempurna", "istimewa",
	},
	medium: []string{
		"good", "great", "nice", "friendly", "fast", "clean", "comfortable",
		"recommended", "satisfied", "helpful",
		"bagus", "baik", "enak", "puas", "senang", "mantap", "ramah", "cepat", "bersih", "nyaman",
	},
	weak: []string{
		"okay", "decent", "fine",
		"lumayan", "cukup", "ok", "oke",
	},
}

var negativeWords = keywordTiers{
	strong: []string{
		"terrible", "worst", "awful", "horrible", "disgusting",
		"sangat buruk", "parah banget", "mengecewakan sekali",
	},
	medium: []string{
		"bad", "poor", "slow", "dirty", "rude", "expensive", "disappointed", "broken",
		"buruk", "jelek", "kecewa", "lambat", "lama", "mahal", "kotor", "tidak enak", "kurang", "rusak",
	},
	weak: []string{
		"not ", "average",
		"tidak", "kurang", "biasa aja",
	},
}

type theme struct {
	name     string
	keywords []string
}

const defaultTheme = "General Experience"

// themeTable is ordered; extracted themes keep this order.
var themeTable = []theme{
	{"Product Quality", []string{"food", "taste", "menu", "product", "fresh", "delicious", "makanan", "rasa", "enak", "produk", "lezat"}},
	{"Service Quality", []string{"service", "staff", "friendly", "employee", "polite", "rude", "pelayanan", "ramah", "karyawan", "sopan"}},
	{"Price & Value", []string{"price", "expensive", "cheap", "value", "affordable", "harga", "mahal", "murah", "terjangkau"}},
	{"Service Speed", []string{"fast", "slow", "wait", "queue", "quick", "cepat", "lama", "tunggu", "antri", "lambat"}},
	{"Cleanliness", []string{"clean", "dirty", "hygien", "tidy", "bersih", "kotor", "higienis", "rapi"}},
	{"Atmosphere", []string{"atmosphere", "place", "comfortable", "location", "cozy", "suasana", "tempat", "nyaman", "lokasi"}},
}
