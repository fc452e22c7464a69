package usps

import "github.com/tournevent/shiprates/pkg/shipper"

// Service flags, one per USPS mail class.
const (
	PriorityMailExpress shipper.ServiceFlag = 1 << iota
	PriorityMail
	GroundAdvantage
	FirstClassPackageInternational
	PriorityMailInternational
	PriorityMailExpressInternational
	MediaMail
	LibraryMail
)

// Services maps USPS mail classes to their display names.
var Services = shipper.NewServiceTable(
	shipper.Service{Code: "PRIORITY_MAIL_EXPRESS", Name: "Priority Mail Express", Flag: PriorityMailExpress},
	shipper.Service{Code: "PRIORITY_MAIL", Name: "Priority Mail", Flag: PriorityMail},
	shipper.Service{Code: "USPS_GROUND_ADVANTAGE", Name: "USPS Ground Advantage", Flag: GroundAdvantage},
	shipper.Service{Code: "FIRST-CLASS_PACKAGE_INTERNATIONAL_SERVICE", Name: "First-Class Package International Service", Flag: FirstClassPackageInternational},
	shipper.Service{Code: "PRIORITY_MAIL_INTERNATIONAL", Name: "Priority Mail International", Flag: PriorityMailInternational},
	shipper.Service{Code: "PRIORITY_MAIL_EXPRESS_INTERNATIONAL", Name: "Priority Mail Express International", Flag: PriorityMailExpressInternational},
	shipper.Service{Code: "MEDIA_MAIL", Name: "Media Mail", Flag: MediaMail},
	shipper.Service{Code: "LIBRARY_MAIL", Name: "Library Mail", Flag: LibraryMail},
)
