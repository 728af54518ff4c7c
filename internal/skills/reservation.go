package skills

import (
	"fmt"

	"github.com/user/mana-voicebot/internal/intent"
	"github.com/user/mana-voicebot/internal/names"
	"github.com/user/mana-voicebot/internal/session"
)

// Reservation books appointments. It owns the profile fields and the
// "appointment" key of the reservation blob.
type Reservation struct {
	brand Branding
}

func NewReservation(b Branding) *Reservation {
	return &Reservation{brand: b}
}

func (r *Reservation) Name() string { return intent.DomainReservation }

func (r *Reservation) Handle(text string, st *session.State, p intent.Payload) Result {
	in := p.StringOr("intent", "booking")

	if name := names.Normalize(p.String("name")); name != "" {
		st.SetName(name)
	}
	st.SetAddress(p.String("address"))

	notes := p.String("notes")
	st.AddNote(notes)

	if appt := p.String("appointment"); appt != "" {
		st.Reservation["appointment"] = appt
	}

	reply := p.Reply()
	if reply == "" {
		reply = r.nextQuestion(st)
	}

	var appointment any
	if v, ok := st.Reservation["appointment"]; ok {
		appointment = v
	}

	return Result{
		Reply:  reply,
		Domain: r.Name(),
		Intent: in,
		Payload: map[string]any{
			"intent":      in,
			"name":        st.Name(),
			"address":     st.Address(),
			"appointment": appointment,
			"notes":       notes,
		},
	}
}

// nextQuestion asks for the first missing piece of the booking.
func (r *Reservation) nextQuestion(st *session.State) string {
	switch {
	case st.Profile.Name == nil:
		return fmt.Sprintf("من دستیار %s هستم از کلینیک %s. لطفاً نام کامل شما را بفرمایید.", r.brand.Assistant, r.brand.Business)
	case st.Profile.Address == nil:
		return fmt.Sprintf("من دستیار %s هستم. لطفاً آدرس شهر و محله خود را هم بفرمایید.", r.brand.Assistant)
	default:
		return "برای چه زمانی مایل هستید نوبت بگیرید؟ روز و بازه زمانی را بفرمایید."
	}
}
