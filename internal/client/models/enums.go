package models

// TransactionType is the direction of a money movement.
type TransactionType string

const (
	TransactionIncome  TransactionType = "INCOME"
	TransactionOutcome TransactionType = "OUTCOME"
)

// Category classifies a transaction.
type Category string

const (
	CategoryFood           Category = "FOOD"
	CategoryLunch          Category = "LUNCH"
	CategoryCoffee         Category = "COFFEE"
	CategoryTransportation Category = "TRANSPORTATION"
	CategoryShopping       Category = "SHOPPING"
	CategoryHousing        Category = "HOUSING"
	CategoryUtilities      Category = "UTILITIES"
	CategoryHealthcare     Category = "HEALTHCARE"
	CategoryEntertainment  Category = "ENTERTAINMENT"
	CategoryEducation      Category = "EDUCATION"
	CategorySalary         Category = "SALARY"
	CategoryGift           Category = "GIFT"
	CategoryOther          Category = "OTHER"
)

// Categories lists every known category in display order.
var Categories = []Category{
	CategoryFood, CategoryLunch, CategoryCoffee, CategoryTransportation,
	CategoryShopping, CategoryHousing, CategoryUtilities, CategoryHealthcare,
	CategoryEntertainment, CategoryEducation, CategorySalary, CategoryGift,
	CategoryOther,
}

// BudgetPeriod is how often a budget renews.
type BudgetPeriod string

const (
	PeriodSingle BudgetPeriod = "single"
	PeriodWeek   BudgetPeriod = "1_week"
	PeriodMonth  BudgetPeriod = "1_month"
	PeriodYear   BudgetPeriod = "1_year"
)

// Periods lists every known budget period.
var Periods = []BudgetPeriod{PeriodSingle, PeriodWeek, PeriodMonth, PeriodYear}
