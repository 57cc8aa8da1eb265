package schedule

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// DefaultBroadcastMessage is the non-personalized text used by broadcasts
// and plain-text exports when the caller supplies none.
const DefaultBroadcastMessage = "Hospital Domingo Luciani - Proyecto Zoriak. Su resultado ya está disponible. Por favor, pase a retirarlo el Lunes. Traer cédula."

var weekdayNames = [...]string{
	time.Sunday:    "Domingo",
	time.Monday:    "Lunes",
	time.Tuesday:   "Martes",
	time.Wednesday: "Miercoles",
	time.Thursday:  "Jueves",
	time.Friday:    "Viernes",
	time.Saturday:  "Sabado",
}

// renderMessage builds the notification text for one patient: institutional
// preamble, name, localized weekday plus dd/mm/yyyy pickup date, closing
// instruction. Texts over max runes are hard-cut to max-3 plus "...", never
// rewrapped.
func renderMessage(fullName string, pickup time.Time, max int) string {
	msg := fmt.Sprintf(
		"Hospital Domingo Luciani - Proyecto Zoriak. Sr(a). %s, su resultado ya está disponible. Puede retirarlo el %s %s. Traer cédula.",
		fullName,
		weekdayNames[pickup.Weekday()],
		pickup.Format("02/01/2006"),
	)
	if utf8.RuneCountInString(msg) <= max {
		return msg
	}
	runes := []rune(msg)
	return string(runes[:max-3]) + "..."
}
