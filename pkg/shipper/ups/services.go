package ups

import "github.com/tournevent/shiprates/pkg/shipper"

// Service flags, one per UPS service code.
const (
	NextDayAir shipper.ServiceFlag = 1 << iota
	SecondDayAir
	Ground
	WorldwideExpress
	WorldwideExpedited
	Standard
	ThreeDaySelect
	NextDayAirSaver
	NextDayAirEarlyAM
	WorldwideExpressPlus
	SecondDayAirAM
	Saver
)

// Services maps UPS service codes to their display names.
var Services = shipper.NewServiceTable(
	shipper.Service{Code: "01", Name: "UPS Next Day Air", Flag: NextDayAir},
	shipper.Service{Code: "02", Name: "UPS 2nd Day Air", Flag: SecondDayAir},
	shipper.Service{Code: "03", Name: "UPS Ground", Flag: Ground},
	shipper.Service{Code: "07", Name: "UPS Worldwide Express", Flag: WorldwideExpress},
	shipper.Service{Code: "08", Name: "UPS Worldwide Expedited", Flag: WorldwideExpedited},
	shipper.Service{Code: "11", Name: "UPS Standard", Flag: Standard},
	shipper.Service{Code: "12", Name: "UPS 3 Day Select", Flag: ThreeDaySelect},
	shipper.Service{Code: "13", Name: "UPS Next Day Air Saver", Flag: NextDayAirSaver},
	shipper.Service{Code: "14", Name: "UPS Next Day Air Early A.M.", Flag: NextDayAirEarlyAM},
	shipper.Service{Code: "54", Name: "UPS Worldwide Express Plus", Flag: WorldwideExpressPlus},
	shipper.Service{Code: "59", Name: "UPS 2nd Day Air A.M.", Flag: SecondDayAirAM},
	shipper.Service{Code: "65", Name: "UPS Saver", Flag: Saver},
)
