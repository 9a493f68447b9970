package capabilities

// ReportKind вид отчета, доступ к которому зависит от тарифа компании
type ReportKind string

const (
	ReportDailyActivity ReportKind = "daily_activity"
	ReportMileage       ReportKind = "mileage"
	ReportFuel          ReportKind = "fuel"
	ReportDriving       ReportKind = "driving"
	ReportMonthlyFleet  ReportKind = "monthly_fleet"
)

// Tier тарифный план компании
type Tier string

const (
	TierBasic    Tier = "basic"
	TierStandard Tier = "standard"
	TierPremium  Tier = "premium"
)

// Set версионированный набор возможностей тарифа. Поля типизированы,
// чтобы добавление нового вида отчета ломало компиляцию таблицы тарифов,
// а не молча выдавало false
type Set struct {
	Version int

	DailyActivity bool
	Mileage       bool
	Fuel          bool
	Driving       bool
	MonthlyFleet  bool
}

// Allows сообщает, доступен ли вид отчета в наборе
func (s Set) Allows(kind ReportKind) bool {
	switch kind {
	case ReportDailyActivity:
		return s.DailyActivity
	case ReportMileage:
		return s.Mileage
	case ReportFuel:
		return s.Fuel
	case ReportDriving:
		return s.Driving
	case ReportMonthlyFleet:
		return s.MonthlyFleet
	default:
		return false
	}
}

// tierTable таблица тарифов. Неизвестный тариф получает basic
var tierTable = map[Tier]Set{
	TierBasic: {
		Version:       1,
		DailyActivity: true,
		Mileage:       true,
	},
	TierStandard: {
		Version:       1,
		DailyActivity: true,
		Mileage:       true,
		Fuel:          true,
		Driving:       true,
	},
	TierPremium: {
		Version:       1,
		DailyActivity: true,
		Mileage:       true,
		Fuel:          true,
		Driving:       true,
		MonthlyFleet:  true,
	},
}

// ForTier возвращает набор возможностей тарифа
func ForTier(tier Tier) Set {
	if set, ok := tierTable[tier]; ok {
		return set
	}
	return tierTable[TierBasic]
}
