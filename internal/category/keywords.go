package category

import "github.com/MarcoPoloResearchLab/basket/internal/catalog"

var exactTerms = map[string]catalog.Category{
	"bread":     Bakery,
	"baguette":  Bakery,
	"bagels":    Bakery,
	"crumpets":  Bakery,
	"croissant": Bakery,
	"pittas":    Bakery,
	"wraps":     Bakery,
	"rolls":     Bakery,

	"milk":    Dairy,
	"eggs":    Dairy,
	"butter":  Dairy,
	"cheese":  Dairy,
	"cheddar": Dairy,
	"yoghurt": Dairy,
	"yogurt":  Dairy,
	"cream":   Dairy,
	"custard": Dairy,

	"apples":    FruitVeg,
	"bananas":   FruitVeg,
	"oranges":   FruitVeg,
	"lemons":    FruitVeg,
	"grapes":    FruitVeg,
	"potatoes":  FruitVeg,
	"onions":    FruitVeg,
	"carrots":   FruitVeg,
	"broccoli":  FruitVeg,
	"leeks":     FruitVeg,
	"garlic":    FruitVeg,
	"courgette": FruitVeg,
	"aubergine": FruitVeg,
	"spinach":   FruitVeg,

	"chicken":  MeatFish,
	"bacon":    MeatFish,
	"mince":    MeatFish,
	"sausages": MeatFish,
	"salmon":   MeatFish,
	"cod":      MeatFish,
	"prawns":   MeatFish,
	"ham":      MeatFish,
	"lamb":     MeatFish,

	"peas":         Frozen,
	"ice cream":    Frozen,
	"fish fingers": Frozen,

	"tea":    Drinks,
	"coffee": Drinks,
	"squash": Drinks,
	"juice":  Drinks,
	"cola":   Drinks,
	"wine":   Drinks,
	"beer":   Drinks,

	"crisps":    Snacks,
	"biscuits":  Snacks,
	"chocolate": Snacks,
	"sweets":    Snacks,

	"pasta":  Cupboard,
	"rice":   Cupboard,
	"flour":  Cupboard,
	"sugar":  Cupboard,
	"cereal": Cupboard,
	"oats":   Cupboard,
	"beans":  Cupboard,
	"stock":  Cupboard,

	"bin bags":     Household,
	"bleach":       Household,
	"foil":         Household,
	"kitchen roll": Household,
	"toilet roll":  Household,

	"shampoo":     Toiletries,
	"toothpaste":  Toiletries,
	"deodorant":   Toiletries,
	"paracetamol": Toiletries,

	"nappies": Baby,
	"wipes":   Baby,

	"cat food": Pets,
	"dog food": Pets,
}

// substringTerms are checked in order, so longer and more specific terms come first.
var substringTerms = []keyword{
	{"ice cream", Frozen},
	{"frozen", Frozen},
	{"fish finger", Frozen},
	{"oven chips", Frozen},

	{"cat food", Pets},
	{"dog food", Pets},
	{"cat litter", Pets},

	{"baby food", Baby},
	{"nappy", Baby},
	{"nappies", Baby},
	{"formula", Baby},

	{"washing up", Household},
	{"washing powder", Household},
	{"fabric conditioner", Household},
	{"kitchen roll", Household},
	{"toilet roll", Household},
	{"bin bag", Household},
	{"cling film", Household},
	{"dishwasher", Household},
	{"bleach", Household},
	{"detergent", Household},

	{"toothpaste", Toiletries},
	{"toothbrush", Toiletries},
	{"shower gel", Toiletries},
	{"shampoo", Toiletries},
	{"conditioner", Toiletries},
	{"deodorant", Toiletries},
	{"soap", Toiletries},
	{"paracetamol", Toiletries},
	{"ibuprofen", Toiletries},

	{"peanut butter", Cupboard},
	{"baked beans", Cupboard},
	{"chopped tomatoes", Cupboard},
	{"tinned", Cupboard},
	{"pasta", Cupboard},
	{"spaghetti", Cupboard},
	{"noodles", Cupboard},
	{"rice", Cupboard},
	{"cereal", Cupboard},
	{"porridge", Cupboard},
	{"flour", Cupboard},
	{"sugar", Cupboard},
	{"stock cube", Cupboard},
	{"sauce", Cupboard},
	{"jam", Cupboard},
	{"honey", Cupboard},
	{"olive oil", Cupboard},
	{"vinegar", Cupboard},

	{"orange juice", Drinks},
	{"sparkling water", Drinks},
	{"teabags", Drinks},
	{"tea bags", Drinks},
	{"coffee", Drinks},
	{"squash", Drinks},
	{"lemonade", Drinks},
	{"cola", Drinks},
	{"juice", Drinks},
	{"wine", Drinks},
	{"lager", Drinks},
	{"beer", Drinks},
	{"cider", Drinks},

	{"chocolate", Snacks},
	{"biscuit", Snacks},
	{"crisps", Snacks},
	{"popcorn", Snacks},
	{"sweets", Snacks},
	{"flapjack", Snacks},

	{"sourdough", Bakery},
	{"bread", Bakery},
	{"loaf", Bakery},
	{"bagel", Bakery},
	{"crumpet", Bakery},
	{"croissant", Bakery},
	{"muffin", Bakery},
	{"tortilla", Bakery},
	{"wrap", Bakery},
	{"cake", Bakery},

	{"yoghurt", Dairy},
	{"yogurt", Dairy},
	{"cheese", Dairy},
	{"cheddar", Dairy},
	{"mozzarella", Dairy},
	{"butter", Dairy},
	{"cream", Dairy},
	{"milk", Dairy},
	{"eggs", Dairy},

	{"chicken", MeatFish},
	{"beef", MeatFish},
	{"pork", MeatFish},
	{"lamb", MeatFish},
	{"mince", MeatFish},
	{"sausage", MeatFish},
	{"bacon", MeatFish},
	{"ham", MeatFish},
	{"salmon", MeatFish},
	{"tuna", MeatFish},
	{"cod", MeatFish},
	{"haddock", MeatFish},
	{"prawn", MeatFish},

	{"apple", FruitVeg},
	{"banana", FruitVeg},
	{"orange", FruitVeg},
	{"lemon", FruitVeg},
	{"berries", FruitVeg},
	{"strawberr", FruitVeg},
	{"grape", FruitVeg},
	{"pear", FruitVeg},
	{"potato", FruitVeg},
	{"onion", FruitVeg},
	{"carrot", FruitVeg},
	{"tomato", FruitVeg},
	{"lettuce", FruitVeg},
	{"salad", FruitVeg},
	{"cucumber", FruitVeg},
	{"pepper", FruitVeg},
	{"mushroom", FruitVeg},
	{"broccoli", FruitVeg},
	{"avocado", FruitVeg},
}
