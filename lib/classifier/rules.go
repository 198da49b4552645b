package classifier

// Category is a coarse subject label for a true-story movie.
type Category string

const (
	Musicians        Category = "Musicians"
	Athletes         Category = "Athletes"
	Scientists       Category = "Scientists"
	Activists        Category = "Activists"
	Businesspeople   Category = "Businesspeople"
	ArtistsWriters   Category = "Artists & Writers"
	Politicians      Category = "Politicians"
	Criminals        Category = "Criminals"
	Entertainers     Category = "Entertainers"
	Military         Category = "Military"
	HistoricalEvents Category = "Historical Events"
	Other            Category = "Other"
	Unknown          Category = "Unknown"
)

// Occupation maps a keyword inside a rule to a finer person label.
type Occupation struct {
	Keyword string
	Label   string
}

// Rule is one entry in the ordered classifier table. A rule matches when any
// of its Keywords appears in the free text, any of its TitleKeywords appears
// in the title, or its Extra predicate holds. Keywords are lowercase and
// matched by plain substring containment.
type Rule struct {
	Category      Category
	Keywords      []string
	TitleKeywords []string
	Extra         func(in input) bool
	Occupations   []Occupation
}

// rules is evaluated top to bottom, first match wins. The order is a designed
// priority because the vocabularies overlap: Scientists sits above Military
// and Criminals so that "enigma"/"cipher" narratives about wartime scientists
// don't land in a war bucket, Activists sits above Criminals so slavery and
// civil-rights stories aren't pulled in by "infiltrates", and Military is
// checked late because war vocabulary shows up in almost everything.
var rules = []Rule{
	{
		Category: Musicians,
		Keywords: []string{
			"musician", "singer", "vocalist", "composer", "band member",
			"performs", "concert", "album", "rapper", "hip hop", "pianist", "piano",
			"musical family", "selena",
		},
		Occupations: []Occupation{
			{"singer", "Singer"},
			{"composer", "Composer"},
			{"rapper", "Rapper"},
			{"pianist", "Pianist"},
			{"vocalist", "Vocalist"},
			{"musician", "Musician"},
		},
	},
	{
		Category: Athletes,
		Keywords: []string{
			"boxer", "boxing", "football", "basketball", "baseball",
			"olympic", "race car", "racing driver", "quarterback", "athlete",
			"coach", "sport", "mixed martial", "mma", "fighter",
		},
		Occupations: []Occupation{
			{"boxer", "Boxer"},
			{"boxing", "Boxer"},
			{"quarterback", "Quarterback"},
			{"racing driver", "Racing Driver"},
			{"coach", "Coach"},
			{"athlete", "Athlete"},
			{"fighter", "Fighter"},
		},
	},
	{
		Category: Scientists,
		Keywords: []string{
			"scientist", "mathematician", "physicist", "professor",
			"researcher", "theory", "discover", "invention", "academic",
			"cryptanalyst", "oppenheimer", "turing", "atomic bomb",
			"enigma", "code", "cipher", "computation",
		},
		Occupations: []Occupation{
			{"mathematician", "Mathematician"},
			{"physicist", "Physicist"},
			{"cryptanalyst", "Cryptanalyst"},
			{"professor", "Professor"},
			{"researcher", "Researcher"},
			{"scientist", "Scientist"},
		},
	},
	{
		Category: Activists,
		Keywords: []string{
			"activist", "civil rights", "protest", "movement",
			"rights", "equality", "discrimination", "segregation",
			"slavery", "slave", "freedom", "abolitionist", "black panthers",
			"free black man",
		},
		Occupations: []Occupation{
			{"abolitionist", "Abolitionist"},
			{"activist", "Activist"},
		},
	},
	{
		Category: Businesspeople,
		Keywords: []string{
			"entrepreneur", "ceo", "founder", "billionaire",
			"creates a company", "starts a business", "facebook", "zuckerberg",
			"businessman",
		},
		Occupations: []Occupation{
			{"entrepreneur", "Entrepreneur"},
			{"founder", "Founder"},
			{"ceo", "Executive"},
			{"billionaire", "Billionaire"},
			{"businessman", "Businessman"},
		},
	},
	{
		Category: ArtistsWriters,
		Keywords: []string{
			"artist", "painter", "writer", "author", "novel",
			"book", "paint", "artwork", "treasure hunt", "monuments men",
			"architect",
		},
		Occupations: []Occupation{
			{"painter", "Painter"},
			{"writer", "Writer"},
			{"author", "Author"},
			{"architect", "Architect"},
			{"artist", "Artist"},
		},
	},
	{
		Category: Politicians,
		Keywords: []string{
			"president", "prime minister", "governor", "senator",
			"politician", "election", "campaign", "congress", "parliament",
			"fbi agent", "deep throat", "watergate",
		},
		Occupations: []Occupation{
			{"prime minister", "Prime Minister"},
			{"president", "President"},
			{"governor", "Governor"},
			{"senator", "Senator"},
			{"fbi agent", "FBI Agent"},
			{"politician", "Politician"},
		},
	},
	{
		Category: Criminals,
		Keywords: []string{
			"gangster", "mob boss", "mafia", "drug lord", "cartel",
			"heist", "robbery", "outlaw", "infiltrates",
		},
		Occupations: []Occupation{
			{"gangster", "Gangster"},
			{"mob boss", "Mob Boss"},
			{"drug lord", "Drug Lord"},
			{"outlaw", "Outlaw"},
		},
	},
	{
		Category: Entertainers,
		Keywords: []string{
			"actor", "actress", "director", "film producer",
			"hollywood", "performance", "stage",
		},
		Occupations: []Occupation{
			{"actress", "Actress"},
			{"actor", "Actor"},
			{"director", "Director"},
			{"film producer", "Producer"},
		},
	},
	{
		Category: Military,
		Keywords: []string{
			"soldier", "general", "navy", "marine", "combat",
			"colonel", "sergeant", "veteran", "squadron", "medic",
			"prisoner of war", "wwii", "world war",
		},
		// "military" alone counts, except in "mixed martial" contexts.
		Extra: func(in input) bool {
			return contains(in.text, "military") && !contains(in.text, "mixed martial")
		},
		Occupations: []Occupation{
			{"soldier", "Soldier"},
			{"general", "General"},
			{"colonel", "Colonel"},
			{"sergeant", "Sergeant"},
			{"medic", "Medic"},
			{"veteran", "Veteran"},
		},
	},
	{
		Category:      HistoricalEvents,
		TitleKeywords: []string{"disaster", "attack", "operation", "mission", "incident"},
		// Event-centered narratives, unlike biographical ones, rarely open
		// with a personal pronoun: a War/History tag only counts when the
		// leading text is pronoun-free.
		Extra: func(in input) bool {
			if !contains(in.tags, "war") && !contains(in.tags, "history") {
				return false
			}
			return pronounFree(in.text)
		},
	},
}

// Rules returns the classifier table in priority order, for inspection.
func Rules() []Rule {
	return rules
}
