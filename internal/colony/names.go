package colony

// Name pools for procedural generation.
var firstNames = []string{
	"Aldric", "Bram", "Cedric", "Doran", "Erik", "Finn", "Gareth",
	"Halvard", "Jasper", "Kael", "Leif", "Magnus", "Oswin", "Rowan",
	"Astrid", "Brenna", "Calla", "Daria", "Elara", "Freya", "Greta",
	"Iris", "Juno", "Kira", "Mira", "Nessa", "Petra", "Runa", "Yara",
}

var lastNames = []string{
	"Voss", "Thornwood", "Blackwood", "Ashford", "Ironhand", "Dunmore",
	"Stormcrow", "Frostborn", "Hearthstone", "Ravenmoor", "Wolfsbane",
	"Stoneheart", "Deepwell", "Redforge", "Marshwood", "Embercroft",
	"Holloway", "Farrow", "Thatcher", "Briar", "Mercer", "Cross",
}

var traitPool = []string{
	"brawler", "careful shooter", "tough", "nimble", "bloodlust",
	"kind", "greedy", "iron-willed", "night owl", "pyromaniac",
	"industrious", "jealous", "psychopath", "sanguine", "wimp",
}

var skillPool = []string{
	"melee", "shooting", "medicine", "construction", "crafting",
	"social", "animals", "plants", "mining", "intellectual",
}

var scarPool = []string{"burned left hand", "missing ear", "scarred brow", "limp", "tattooed jaw", "none"}

var hairPool = []string{"shaved", "braided", "matted", "grey", "red", "black"}

var factionIDs = []string{"ashen", "drifters", "reavers", "vale"}

var factionNames = []string{"the Ashen Pact", "the Drifters", "the Reaver Clans", "Vale Outlanders"}

var craftPool = []string{"longsword", "revolver", "parka", "sculpture", "plate armor", "bow"}

var seasons = [4]string{"Spring", "Summer", "Autumn", "Winter"}

func seasonOf(day int) string {
	return seasons[(day/15)%4]
}
