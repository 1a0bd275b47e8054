package story

const (
	AxisMin    = 0.0
	AxisMax    = 100.0
	AxisStart  = 50.0
	OverallMin = -100.0
	OverallMax = 100.0
)

// Axes lists the political axes tracked for every player.
var Axes = []string{
	"individualLiberty",
	"fiscalResponsibility",
	"traditionalValues",
	"nationalSecurity",
	"freeMarketEconomy",
	"constitutionalInterpretation",
	"localAutonomy",
	"lawEnforcement",
	"patriotism",
	"religiousExpression",
	"socialEquity",
	"environmentalProtection",
	"governmentServices",
	"progressiveTaxation",
	"civilRights",
	"weaponRegulation",
	"multiculturalism",
	"internationalCooperation",
	"healthcareAccess",
	"laborRights",
}

var axisSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(Axes))
	for _, axis := range Axes {
		set[axis] = struct{}{}
	}
	return set
}()

// IsAxis reports whether name is one of the fixed political axes.
func IsAxis(name string) bool {
	_, ok := axisSet[name]
	return ok
}

type PoliticalAlignment struct {
	Values           map[string]float64 `json:"values"`
	OverallAlignment float64            `json:"overallAlignment"`
}

type AlignmentPoint struct {
	Timestamp int64   `json:"timestamp"`
	Alignment float64 `json:"alignment"`
}

// DefaultAlignment returns every axis at its starting value and a neutral
// overall score.
func DefaultAlignment() PoliticalAlignment {
	values := make(map[string]float64, len(Axes))
	for _, axis := range Axes {
		values[axis] = AxisStart
	}
	return PoliticalAlignment{Values: values}
}

func (a PoliticalAlignment) clone() PoliticalAlignment {
	values := make(map[string]float64, len(a.Values))
	for k, v := range a.Values {
		values[k] = v
	}
	return PoliticalAlignment{Values: values, OverallAlignment: a.OverallAlignment}
}
