package classifier

// DefaultEntries returns the built-in keyword table used when the database
// has no keywords yet. Entries are vendor names mapped to the default
// category tree; none are user defined so counters learn from usage.
func DefaultEntries() []*Entry {
	seed := []struct {
		keyword     string
		category    string
		subcategory string
	}{
		{"ZOMATO", "Food & Dining", "Delivery"},
		{"SWIGGY", "Food & Dining", "Delivery"},
		{"DOMINOS", "Food & Dining", "Restaurants"},
		{"MCDONALD", "Food & Dining", "Restaurants"},
		{"STARBUCKS", "Food & Dining", "Coffee"},
		{"CAFE", "Food & Dining", "Coffee"},
		{"UBER", "Transport", "Ride Hailing"},
		{"OLA", "Transport", "Ride Hailing"},
		{"RAPIDO", "Transport", "Ride Hailing"},
		{"IRCTC", "Travel", "Train"},
		{"INDIGO", "Travel", "Flights"},
		{"AIR INDIA", "Travel", "Flights"},
		{"MAKEMYTRIP", "Travel", "Booking"},
		{"PETROL", "Transport", "Fuel"},
		{"FUEL", "Transport", "Fuel"},
		{"AMAZON", "Shopping", "Online"},
		{"FLIPKART", "Shopping", "Online"},
		{"MYNTRA", "Shopping", "Clothing"},
		{"DMART", "Groceries", "Supermarket"},
		{"BIGBASKET", "Groceries", "Online"},
		{"BLINKIT", "Groceries", "Online"},
		{"ZEPTO", "Groceries", "Online"},
		{"TWINS TOWER", "Groceries", "Supermarket"},
		{"NETFLIX", "Entertainment", "Streaming"},
		{"SPOTIFY", "Entertainment", "Streaming"},
		{"PRIME VIDEO", "Entertainment", "Streaming"},
		{"BOOKMYSHOW", "Entertainment", "Movies"},
		{"ELECTRICITY", "Bills & Utilities", "Electricity"},
		{"BROADBAND", "Bills & Utilities", "Internet"},
		{"JIO", "Bills & Utilities", "Mobile"},
		{"AIRTEL", "Bills & Utilities", "Mobile"},
		{"PHARMACY", "Health", "Pharmacy"},
		{"APOLLO", "Health", "Pharmacy"},
		{"HOSPITAL", "Health", "Medical"},
		{"SALARY", "Income", "Salary"},
		{"DIVIDEND", "Income", "Investments"},
		{"INTEREST", "Income", "Interest"},
		{"ATM", "Cash", "Withdrawal"},
		{"CASH", "Cash", "Withdrawal"},
		{"RENT", "Housing", "Rent"},
	}

	entries := make([]*Entry, 0, len(seed))
	for _, s := range seed {
		entries = append(entries, &Entry{
			Keyword:     s.keyword,
			Category:    s.category,
			Subcategory: s.subcategory,
		})
	}
	return entries
}
