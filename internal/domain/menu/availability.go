package menu

// InStock is the live availability check: false as soon as one base ingredient has no stock left.
// Extras never affect it. A dish without links, or a link whose ingredient row is missing,
// counts as in stock.
func (d *Dish) InStock() bool {
	for _, l := range d.Links {
		if l.IsExtra || l.Ingredient == nil {
			continue
		}
		if !l.Ingredient.InStock() {
			return false
		}
	}
	return true
}

// Listed combines the admin toggle with the live check, which is what customers see.
func (d *Dish) Listed() bool {
	return d.Available && d.InStock()
}

// MissingIngredients names the base ingredients currently out of stock.
func (d *Dish) MissingIngredients() []string {
	var out []string
	for _, l := range d.Links {
		if l.IsExtra || l.Ingredient == nil {
			continue
		}
		if !l.Ingredient.InStock() {
			out = append(out, l.Ingredient.Name)
		}
	}
	return out
}
