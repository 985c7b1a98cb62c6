// Package outfit maps the current temperature to clothing advice.
package outfit

// Category is one of the seven temperature bands.
type Category string

const (
	ExtremeHeat Category = "Extreme Heat"
	HotWeather  Category = "Hot Weather"
	WarmWeather Category = "Warm Weather"
	MildWeather Category = "Mild Weather"
	CoolWeather Category = "Cool Weather"
	ColdWeather Category = "Cold Weather"
	ExtremeCold Category = "Extreme Cold"
)

// Advice is a category label plus multi-line guidance.
type Advice struct {
	Category Category
	Guidance string
}

// band matches temperatures at or above Min (strictly above when Exclusive).
type band struct {
	Min       float64
	Exclusive bool
	Advice    Advice
}

// bands is scanned top-down; the first matching band wins.
var bands = []band{
	{Min: 30, Exclusive: true, Advice: Advice{ExtremeHeat,
		"Wear lightweight, breathable clothes (cotton/linen).\n" +
			"• Sunglasses and wide-brimmed hat recommended\n" +
			"• Apply sunscreen (SPF 30+)\n" +
			"• Stay hydrated and avoid direct sun"}},
	{Min: 25, Advice: Advice{HotWeather,
		"Light summer clothing recommended\n" +
			"• T-shirts and shorts\n" +
			"• Sandals or breathable shoes\n" +
			"• Sunglasses for eye protection"}},
	{Min: 20, Advice: Advice{WarmWeather,
		"Comfortable casual wear\n" +
			"• Light shirts or blouses\n" +
			"• Comfortable pants or skirts\n" +
			"• Light jacket for evening"}},
	{Min: 15, Advice: Advice{MildWeather,
		"Layer your clothing\n" +
			"• Long-sleeve shirts\n" +
			"• Light sweater or jacket\n" +
			"• Comfortable pants"}},
	{Min: 10, Advice: Advice{CoolWeather,
		"Warmer layers needed\n" +
			"• Sweaters or fleece\n" +
			"• Light to medium jacket\n" +
			"• Long pants"}},
	{Min: 0, Advice: Advice{ColdWeather,
		"Bundle up!\n" +
			"• Heavy coat or parka\n" +
			"• Gloves and scarf\n" +
			"• Warm hat and insulated shoes"}},
}

var extremeCold = Advice{ExtremeCold,
	"Full winter protection required\n" +
		"• Thermal underwear\n" +
		"• Heavy winter coat\n" +
		"• Insulated gloves and boots\n" +
		"• Face protection in windy conditions"}

// Recommend returns the advice for a temperature in °C.
// NaN matches no band and falls through to ExtremeCold.
func Recommend(tempC float64) Advice {
	for _, b := range bands {
		if tempC > b.Min || (!b.Exclusive && tempC == b.Min) {
			return b.Advice
		}
	}
	return extremeCold
}

// Categories lists every category from hottest to coldest.
func Categories() []Category {
	out := make([]Category, 0, len(bands)+1)
	for _, b := range bands {
		out = append(out, b.Advice.Category)
	}
	return append(out, extremeCold.Category)
}
