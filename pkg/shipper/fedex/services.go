package fedex

import "github.com/tournevent/shiprates/pkg/shipper"

// Service flags, one per FedEx service type.
const (
	PriorityOvernight shipper.ServiceFlag = 1 << iota
	StandardOvernight
	FirstOvernight
	TwoDay
	TwoDayAM
	ExpressSaver
	Ground
	GroundHomeDelivery
	InternationalPriority
	InternationalEconomy
	InternationalFirst
)

// Services maps FedEx service types to their display names.
var Services = shipper.NewServiceTable(
	shipper.Service{Code: "PRIORITY_OVERNIGHT", Name: "FedEx Priority Overnight", Flag: PriorityOvernight},
	shipper.Service{Code: "STANDARD_OVERNIGHT", Name: "FedEx Standard Overnight", Flag: StandardOvernight},
	shipper.Service{Code: "FIRST_OVERNIGHT", Name: "FedEx First Overnight", Flag: FirstOvernight},
	shipper.Service{Code: "FEDEX_2_DAY", Name: "FedEx 2Day", Flag: TwoDay},
	shipper.Service{Code: "FEDEX_2_DAY_AM", Name: "FedEx 2Day A.M.", Flag: TwoDayAM},
	shipper.Service{Code: "FEDEX_EXPRESS_SAVER", Name: "FedEx Express Saver", Flag: ExpressSaver},
	shipper.Service{Code: "FEDEX_GROUND", Name: "FedEx Ground", Flag: Ground},
	shipper.Service{Code: "GROUND_HOME_DELIVERY", Name: "FedEx Home Delivery", Flag: GroundHomeDelivery},
	shipper.Service{Code: "INTERNATIONAL_PRIORITY", Name: "FedEx International Priority", Flag: InternationalPriority},
	shipper.Service{Code: "INTERNATIONAL_ECONOMY", Name: "FedEx International Economy", Flag: InternationalEconomy},
	shipper.Service{Code: "INTERNATIONAL_FIRST", Name: "FedEx International First", Flag: InternationalFirst},
)

var transitDays = map[string]int{
	"ONE_DAY":        1,
	"TWO_DAYS":       2,
	"THREE_DAYS":     3,
	"FOUR_DAYS":      4,
	"FIVE_DAYS":      5,
	"SIX_DAYS":       6,
	"SEVEN_DAYS":     7,
	"EIGHT_DAYS":     8,
	"NINE_DAYS":      9,
	"TEN_DAYS":       10,
	"ELEVEN_DAYS":    11,
	"TWELVE_DAYS":    12,
	"THIRTEEN_DAYS":  13,
	"FOURTEEN_DAYS":  14,
	"FIFTEEN_DAYS":   15,
	"SIXTEEN_DAYS":   16,
	"SEVENTEEN_DAYS": 17,
	"EIGHTEEN_DAYS":  18,
	"NINETEEN_DAYS":  19,
	"TWENTY_DAYS":    20,
}
