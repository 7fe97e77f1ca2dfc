package events

// Category is one of the platform's main categories.
type Category string

const (
	CategoryElectronic Category = "DJ Sets/Electronic"
	CategoryClubs      Category = "Clubs/Discos"
	CategoryConcerts   Category = "Live-Konzerte"
	CategoryOpenAir    Category = "Open Air"
	CategoryMuseums    Category = "Museen"
	CategoryLGBTQ      Category = "LGBTQ+"
	CategoryComedy     Category = "Comedy/Kabarett"
	CategoryTheater    Category = "Theater/Performance"
	CategoryFilm       Category = "Film"
	CategoryFood       Category = "Food/Culinary"
	CategorySport      Category = "Sport"
	CategoryFamily     Category = "Familien/Kids"
	CategoryArt        Category = "Kunst/Design"
	CategoryWellness   Category = "Wellness/Spirituell"
	CategoryNetworking Category = "Networking/Business"
	CategoryNature     Category = "Natur/Outdoor"
	CategoryCulture    Category = "Kultur/Traditionen"
	CategoryMarkets    Category = "Märkte/Shopping"
	CategoryEducation  Category = "Bildung/Lernen"
	CategoryCommunity  Category = "Soziales/Community"
	DefaultCategory    = CategoryCulture
)

// MainCategories lists the closed enumeration in display order.
var MainCategories = []Category{
	CategoryElectronic,
	CategoryClubs,
	CategoryConcerts,
	CategoryOpenAir,
	CategoryMuseums,
	CategoryLGBTQ,
	CategoryComedy,
	CategoryTheater,
	CategoryFilm,
	CategoryFood,
	CategorySport,
	CategoryFamily,
	CategoryArt,
	CategoryWellness,
	CategoryNetworking,
	CategoryNature,
	CategoryCulture,
	CategoryMarkets,
	CategoryEducation,
	CategoryCommunity,
}

// rawLabels maps upstream label variants to a canonical label. Keys are
// normalized with normalizeKey when the index is built.
var rawLabels = map[string]string{
	// concerts
	"Konzerte klassisch":   "Klassisch",
	"Klassik":              "Klassisch",
	"Klassische Musik":     "Klassisch",
	"Classical":            "Klassisch",
	"Klassik/Oper":         "Klassisch",
	"Oper":                 "Oper",
	"Opera":                "Oper",
	"Orchester":            "Klassisch",
	"Rock":                 "Rock/Pop",
	"Pop":                  "Rock/Pop",
	"Rock/Pop":             "Rock/Pop",
	"Rock/Pop/Alternative": "Rock/Pop",
	"Indie":                "Rock/Pop",
	"Jazz":                 "Jazz/Blues",
	"Blues":                "Jazz/Blues",
	"Jazz/Blues":           "Jazz/Blues",
	"Hip-Hop":              "Hip-Hop/Rap",
	"Hip Hop":              "Hip-Hop/Rap",
	"Rap":                  "Hip-Hop/Rap",
	"Singer-Songwriter":    "Singer-Songwriter",
	"Folk":                 "Singer-Songwriter",
	"Konzert":              "Konzert",
	"Konzerte":             "Konzert",
	"Live Music":           "Konzert",
	"Livemusik":            "Konzert",
	"Live-Musik":           "Konzert",
	"Concert":              "Konzert",
	// electronic & nightlife
	"Techno":             "Techno/House",
	"House":              "Techno/House",
	"EDM":                "Techno/House",
	"Electronic":         "Techno/House",
	"Elektronisch":       "Techno/House",
	"Drum & Bass":        "Techno/House",
	"DJ":                 "DJ Set",
	"DJ Set":             "DJ Set",
	"DJ Sets":            "DJ Set",
	"Club":               "Club",
	"Clubs":              "Club",
	"Disco":              "Club",
	"Clubbing":           "Club",
	"Clubs & Nachtleben": "Club",
	"Musik & Nachtleben": "Club",
	"Nachtleben":         "Club",
	"Party":              "Club",
	"Bars":               "Bar",
	"Bar":                "Bar",
	"Queer":              "Queer",
	"LGBT":               "Queer",
	"LGBTQ":              "Queer",
	"Pride":              "Queer",
	// stage
	"Theater":         "Theater",
	"Theatre":         "Theater",
	"Schauspiel":      "Theater",
	"Musical":         "Musical",
	"Tanz":            "Tanz",
	"Ballett":         "Tanz",
	"Dance":           "Tanz",
	"Performance":     "Performance",
	"Kabarett":        "Kabarett",
	"Comedy":          "Comedy",
	"Stand-up":        "Comedy",
	"Stand-up Comedy": "Comedy",
	"Kleinkunst":      "Kabarett",
	// visual arts & museums
	"Museum":        "Museum",
	"Ausstellung":   "Ausstellung",
	"Ausstellungen": "Ausstellung",
	"Exhibition":    "Ausstellung",
	"Galerie":       "Galerie",
	"Kunst":         "Kunst",
	"Art":           "Kunst",
	"Design":        "Design",
	"Fotografie":    "Kunst",
	"Kino":          "Kino",
	"Film":          "Kino",
	"Filme":         "Kino",
	"Cinema":        "Kino",
	"Open-Air-Kino": "Open-Air-Kino",
	"Sommerkino":    "Open-Air-Kino",
	// outdoors, food, markets
	"Open Air":        "Open Air",
	"Openair":         "Open Air",
	"Festival":        "Festival",
	"Festivals":       "Festival",
	"Food":            "Kulinarik",
	"Kulinarik":       "Kulinarik",
	"Essen":           "Kulinarik",
	"Wein":            "Kulinarik",
	"Weinverkostung":  "Kulinarik",
	"Markt":           "Markt",
	"Märkte":          "Markt",
	"Flohmarkt":       "Markt",
	"Weihnachtsmarkt": "Markt",
	"Shopping":        "Shopping",
	"Natur":           "Natur",
	"Wandern":         "Natur",
	"Outdoor":         "Natur",
	"Sport":           "Sport",
	"Fußball":         "Sport",
	"Laufen":          "Sport",
	"Yoga":            "Wellness",
	"Wellness":        "Wellness",
	"Meditation":      "Wellness",
	// community & learning
	"Familie":    "Familie",
	"Familien":   "Familie",
	"Kinder":     "Familie",
	"Kids":       "Familie",
	"Workshop":   "Workshop",
	"Workshops":  "Workshop",
	"Vortrag":    "Vortrag",
	"Lesung":     "Lesung",
	"Literatur":  "Lesung",
	"Bildung":    "Workshop",
	"Networking": "Networking",
	"Business":   "Networking",
	"Meetup":     "Networking",
	"Konferenz":  "Networking",
	"Community":  "Community",
	"Ehrenamt":   "Community",
	"Brauchtum":  "Tradition",
	"Tradition":  "Tradition",
	"Kultur":     "Tradition",
	"Ball":       "Tradition",
	"Heuriger":   "Tradition",
}

// canonicalToMain maps each canonical label to a main category.
var canonicalToMain = map[string]Category{
	"Klassisch":         CategoryConcerts,
	"Oper":              CategoryConcerts,
	"Rock/Pop":          CategoryConcerts,
	"Jazz/Blues":        CategoryConcerts,
	"Hip-Hop/Rap":       CategoryConcerts,
	"Singer-Songwriter": CategoryConcerts,
	"Konzert":           CategoryConcerts,
	"Techno/House":      CategoryElectronic,
	"DJ Set":            CategoryElectronic,
	"Club":              CategoryClubs,
	"Bar":               CategoryClubs,
	"Queer":             CategoryLGBTQ,
	"Theater":           CategoryTheater,
	"Musical":           CategoryTheater,
	"Tanz":              CategoryTheater,
	"Performance":       CategoryTheater,
	"Kabarett":          CategoryComedy,
	"Comedy":            CategoryComedy,
	"Museum":            CategoryMuseums,
	"Ausstellung":       CategoryMuseums,
	"Galerie":           CategoryArt,
	"Kunst":             CategoryArt,
	"Design":            CategoryArt,
	"Kino":              CategoryFilm,
	"Open-Air-Kino":     CategoryOpenAir,
	"Open Air":          CategoryOpenAir,
	"Festival":          CategoryOpenAir,
	"Kulinarik":         CategoryFood,
	"Markt":             CategoryMarkets,
	"Shopping":          CategoryMarkets,
	"Natur":             CategoryNature,
	"Sport":             CategorySport,
	"Wellness":          CategoryWellness,
	"Familie":           CategoryFamily,
	"Workshop":          CategoryEducation,
	"Vortrag":           CategoryEducation,
	"Lesung":            CategoryEducation,
	"Networking":        CategoryNetworking,
	"Community":         CategoryCommunity,
	"Tradition":         CategoryCulture,
}

// Resolution is the outcome of canonicalizing a raw label. Known is false
// for the fallback variant.
type Resolution struct {
	Canonical string
	Main      Category
	Known     bool
}

type labelIndex struct {
	canonical map[string]string
	main      map[string]Category
}

var index = buildIndex()

func buildIndex() labelIndex {
	idx := labelIndex{
		canonical: make(map[string]string, len(rawLabels)+len(canonicalToMain)),
		main:      make(map[string]Category, len(MainCategories)),
	}
	for canonical := range canonicalToMain {
		idx.canonical[normalizeKey(canonical)] = canonical
	}
	for raw, canonical := range rawLabels {
		idx.canonical[normalizeKey(raw)] = canonical
	}
	for _, cat := range MainCategories {
		idx.main[normalizeKey(string(cat))] = cat
	}
	return idx
}

// Canonicalize maps any upstream label onto the category tables. Main
// category names resolve to themselves; anything unmapped resolves to
// DefaultCategory with Known=false.
func Canonicalize(raw string) Resolution {
	key := normalizeKey(raw)
	if key == "" {
		return Resolution{Main: DefaultCategory}
	}
	if cat, ok := index.main[key]; ok {
		return Resolution{Canonical: string(cat), Main: cat, Known: true}
	}
	if canonical, ok := index.canonical[key]; ok {
		return Resolution{Canonical: canonical, Main: canonicalToMain[canonical], Known: true}
	}
	return Resolution{Main: DefaultCategory}
}

// ParseCategory resolves a requested category. Unlike Canonicalize it does
// not fall back, so request validation can reject unknown labels.
func ParseCategory(raw string) (Category, bool) {
	res := Canonicalize(raw)
	if !res.Known {
		return "", false
	}
	return res.Main, true
}

// IsMain reports whether c is a member of the closed enumeration.
func (c Category) IsMain() bool {
	for _, cat := range MainCategories {
		if c == cat {
			return true
		}
	}
	return false
}

// Slug is the cache-key friendly form of the category.
func (c Category) Slug() string {
	return Slugify(string(c))
}
