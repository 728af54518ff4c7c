package skills

import (
	"fmt"
	"strings"

	"github.com/user/mana-voicebot/internal/intent"
	"github.com/user/mana-voicebot/internal/session"
)

const (
	defaultAudience  = "کلینیک‌ها، مطب‌ها و کسب‌وکارهای خدماتی"
	defaultPainPoint = "اتلاف وقت زیاد روی پاسخ‌گویی تکراری در واتساپ و تلفن و جا افتادن نوبت‌ها"
	defaultBenefit   = "خودکارسازی پاسخ‌گویی و نوبت‌گیری ۲۴ ساعته، بدون خستگی و بدون خطای انسانی"
	defaultCTA       = "اگر دوست دارید، می‌توانیم یک دمو کوتاه برای شما فعال کنیم تا از نزدیک ببینید چطور کار می‌کند."
)

// Produce pitches the product, with a dedicated answer for "why should I buy it".
type Produce struct {
	brand Branding
}

func NewProduce(b Branding) *Produce {
	return &Produce{brand: b}
}

func (s *Produce) Name() string { return intent.DomainProduce }

type pitch struct {
	product, audience, painPoint, benefit, cta string
}

func (s *Produce) Handle(text string, st *session.State, p intent.Payload) Result {
	in := p.StringOr("intent", "pitch")
	pt := pitch{
		product:   p.StringOr("product_name", s.brand.Product),
		audience:  p.StringOr("audience", defaultAudience),
		painPoint: p.StringOr("pain_point", defaultPainPoint),
		benefit:   p.StringOr("benefit", defaultBenefit),
		cta:       p.StringOr("cta", defaultCTA),
	}

	st.Produce["last_product_name"] = pt.product
	st.Produce["last_intent"] = in

	reply := p.Reply()
	if reply == "" {
		if in == "why_buy" {
			reply = whyBuy(pt)
		} else {
			reply = genericPitch(pt)
		}
	}

	return Result{
		Reply:  reply,
		Domain: s.Name(),
		Intent: in,
		Payload: map[string]any{
			"intent":       in,
			"product_name": pt.product,
			"audience":     pt.audience,
			"pain_point":   pt.painPoint,
			"benefit":      pt.benefit,
			"cta":          pt.cta,
		},
	}
}

func whyBuy(p pitch) string {
	return strings.Join([]string{
		fmt.Sprintf("%s در واقع یک دستیار هوشمند است که برای %s طراحی شده "+
			"تا کارهای تکراری مثل نوبت‌گیری و پاسخ‌گویی به سوالات ساده را به‌جای شما انجام بدهد.", p.product, p.audience),
		fmt.Sprintf("اگر بخواهم ساده بگویم، مشکل اصلی که حل می‌کند این است: «%s».", p.painPoint),
		fmt.Sprintf("با %s این روند %s؛ یعنی به‌جای این‌که منشی یا خودتان مدام پای گوشی و واتساپ باشید، "+
			"زمان‌تان آزاد می‌شود و می‌توانید روی کارهای تخصصی‌تر تمرکز کنید.", p.product, p.benefit),
		"نکته مهم این است که این سیستم قرار نیست جای شما را بگیرد؛ " +
			"فقط کارهای خسته‌کننده و تکراری را از روی دوش‌تان برمی‌دارد و خطاهای انسانی را کمتر می‌کند.",
		p.cta,
	}, " ")
}

func genericPitch(p pitch) string {
	return strings.Join([]string{
		fmt.Sprintf("%s برای %s طراحی شده تا دردسر مدیریت نوبت و پاسخ‌گویی تکراری را کم کند.", p.product, p.audience),
		fmt.Sprintf("خیلی از کسب‌وکارها با مشکل «%s» درگیر هستند و این هم زمان می‌گیرد هم روی کیفیت کار اثر می‌گذارد.", p.painPoint),
		fmt.Sprintf("%s این روند را خودکار می‌کند؛ یعنی %s و شما می‌توانید روی کارهای مهم‌تر تمرکز کنید.", p.product, p.benefit),
		"تجربه نشان داده وقتی پاسخ‌گویی سریع و منظم شود، رضایت مراجعین هم بالاتر می‌رود و تماس‌های عصبی کمتر می‌شود.",
		p.cta,
	}, " ")
}
