package mockmarket

type stockListing struct {
	Symbol string
	Name   string
	Logo   string
}

var popularStocks = []stockListing{
	{"AAPL", "Apple Inc.", "🍎"},
	{"MSFT", "Microsoft Corporation", "🪟"},
	{"GOOGL", "Alphabet Inc.", "🔍"},
	{"AMZN", "Amazon.com Inc.", "📦"},
	{"TSLA", "Tesla Inc.", "⚡"},
	{"META", "Meta Platforms Inc.", "👤"},
	{"NVDA", "NVIDIA Corporation", "🎮"},
	{"JPM", "JPMorgan Chase & Co.", "🏦"},
	{"V", "Visa Inc.", "💳"},
	{"WMT", "Walmart Inc.", "🛒"},
	{"DIS", "The Walt Disney Company", "🏰"},
	{"NFLX", "Netflix Inc.", "🎬"},
	{"PYPL", "PayPal Holdings Inc.", "💰"},
	{"INTC", "Intel Corporation", "💻"},
	{"AMD", "Advanced Micro Devices Inc.", "⚙️"},
}

type steamListing struct {
	AppID    int
	Name     string
	Game     string
	HashName string
	Rarity   string
	Emoji    string
}

var popularSteamItems = []steamListing{
	// CS2
	{730, "AK-47 | Redline (Field-Tested)", "CS2", "AK-47 | Redline (Field-Tested)", "Classified", "🔴"},
	{730, "AWP | Asiimov (Field-Tested)", "CS2", "AWP | Asiimov (Field-Tested)", "Covert", "🎯"},
	{730, "M4A4 | Howl (Factory New)", "CS2", "M4A4 | Howl (Factory New)", "Contraband", "🐺"},
	{730, "Desert Eagle | Kumicho Dragon (Factory New)", "CS2", "Desert Eagle | Kumicho Dragon (Factory New)", "Covert", "🐉"},
	{730, "Gut Knife | Doppler (Factory New)", "CS2", "Gut Knife | Doppler (Factory New)", "Knife", "🔪"},

	// Dota 2
	{570, "Dragonclaw Hook", "Dota 2", "Dragonclaw Hook", "Immortal", "🪝"},
	{570, "Stache of the Spoils of War", "Dota 2", "Stache of the Spoils of War", "Immortal", "👔"},
	{570, "Autographed Vigil Triumph", "Dota 2", "Autographed Vigil Triumph", "Immortal", "✍️"},

	// TF2
	{440, "Unusual Burning Flames Team Captain", "TF2", "Unusual Burning Flames Team Captain", "Unusual", "🔥"},
	{440, "Golden Frying Pan", "TF2", "Golden Frying Pan", "Decorated", "🍳"},

	// Rust
	{252490, "Metal Face Mask", "Rust", "Metal Face Mask", "Rare", "😷"},
	{252490, "Hoodie", "Rust", "Hoodie", "Common", "👕"},
	{252490, "AK47 | Tempered AK47", "Rust", "AK47 | Tempered AK47", "Legendary", "🔫"},
}

// rarityBasePrice is the USD anchor for generated Steam prices.
var rarityBasePrice = map[string]float64{
	"Common":     0.5,
	"Rare":       3,
	"Classified": 15,
	"Covert":     50,
	"Knife":      200,
	"Immortal":   100,
	"Unusual":    500,
	"Legendary":  75,
	"Decorated":  3000,
	"Contraband": 15000,
}

func basePriceFor(rarity string) float64 {
	if p, ok := rarityBasePrice[rarity]; ok {
		return p
	}
	return 1
}

// emojiImage renders an emoji as an inline SVG data URL.
func emojiImage(emoji string) string {
	return "data:image/svg+xml,<svg xmlns='http://www.w3.org/2000/svg' width='40' height='40'>" +
		"<text x='20' y='25' text-anchor='middle' font-size='20'>" + emoji + "</text></svg>"
}
