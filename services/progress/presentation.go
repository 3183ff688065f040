package progress

import "furk/models"

// Presentation is how a booking status is rendered by the widget.
type Presentation struct {
	Status   models.BookingStatus `json:"status"`
	Label    string               `json:"label"`
	Tone     string               `json:"tone"`
	Icon     string               `json:"icon"`
	Animated bool                 `json:"animated"`
}

var presentations = map[models.BookingStatus]Presentation{
	models.BookingPending:    {Status: models.BookingPending, Label: "Waiting for the merchant to start", Tone: "warning", Icon: "clock"},
	models.BookingInProgress: {Status: models.BookingInProgress, Label: "Your pet is being taken care of", Tone: "info", Icon: "paw", Animated: true},
	models.BookingCompleted:  {Status: models.BookingCompleted, Label: "All done! Your booking is complete", Tone: "success", Icon: "check"},
	models.BookingError:      {Status: models.BookingError, Label: "Something went wrong with this booking", Tone: "error", Icon: "alert"},
}

// PresentationFor looks status up in the fixed table; anything unknown
// renders as ERROR.
func PresentationFor(status models.BookingStatus) Presentation {
	return presentations[models.NormalizeBookingStatus(string(status))]
}
