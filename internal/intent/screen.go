package intent

import "strings"

const (
	IntentTest  = "test"
	IntentNoise = "noise"

	testReceivedReply = "من دستیار ManaCare هستم. این بخش فقط برای تست صدا ثبت شد؛ " +
		"هر زمان آماده نوبت واقعی بودید، نام و درخواست‌تان را بفرمایید."
	testClampReply = "من دستیار ManaCare هستم. صدای شما را برای تست دریافت کردم؛ " +
		"هر زمان برای نوبت واقعی آماده بودید، فقط نام و درخواست‌تان را بفرمایید."
	noiseClampReply = "من دستیار ManaCare هستم. در این بخش صدای مناسب برای رزرو نوبت دریافت نکردم؛ " +
		"اگر می‌خواهید وقت بگیرید، لطفاً نام و دلیل مراجعه را بفرمایید."
)

var testKeywords = []string{
	"تست صدا",
	"تست ضبط",
	"آزمایش صدا",
	"آزمایش میکروفون",
	"آزمایش میکروفن",
	"کالیبره",
	"برای تست",
	"فقط تست",
	"فقط برای آزمایش",
	"mic test",
	"sound check",
}

// Booking vocabulary overrides the test keywords, including the Arabic-letter
// spellings transcribers sometimes emit.
var bookingKeywords = []string{
	"نوبت",
	"ویزیت",
	"ويزيت",
	"وقت",
	"مشاوره",
	"دکتر",
	"دكتر",
	"پزشک",
	"کلینیک",
	"كلينيك",
}

// IsTestUtterance reports whether the caller is only checking the microphone.
// It is a keyword heuristic.
func IsTestUtterance(text string) bool {
	txt := strings.ToLower(strings.TrimSpace(strings.ReplaceAll(text, "🎤", "")))
	if txt == "" {
		return false
	}
	for _, k := range bookingKeywords {
		if strings.Contains(txt, k) {
			return false
		}
	}
	for _, k := range testKeywords {
		if strings.Contains(txt, k) {
			return true
		}
	}
	return false
}

// TestDecision short-circuits a screened test utterance.
func TestDecision() Decision {
	return smalltalkReply(IntentTest, testReceivedReply)
}

// ClampNoise replaces a test or noise decision with a fixed smalltalk reply so
// no profile field is touched. Other decisions are returned unchanged.
func ClampNoise(d Decision) (Decision, bool) {
	switch d.Intent() {
	case IntentTest:
		return smalltalkReply(IntentTest, testClampReply), true
	case IntentNoise:
		return smalltalkReply(IntentNoise, noiseClampReply), true
	default:
		return d, false
	}
}

func smalltalkReply(intent, reply string) Decision {
	return Decision{
		Domain: DomainSmalltalk,
		Payload: NewPayload(map[string]any{
			"intent": intent,
			"reply":  reply,
		}),
	}
}
