package skills

import (
	"fmt"

	"github.com/user/mana-voicebot/internal/intent"
	"github.com/user/mana-voicebot/internal/names"
	"github.com/user/mana-voicebot/internal/session"
)

// Visitor is the outbound sales agent: intro, needs discovery, product info,
// pricing, objection handling and closing.
type Visitor struct {
	brand Branding
}

func NewVisitor(b Branding) *Visitor {
	return &Visitor{brand: b}
}

func (v *Visitor) Name() string { return intent.DomainVisitor }

func (v *Visitor) Handle(text string, st *session.State, p intent.Payload) Result {
	in := p.StringOr("intent", "intro")
	product := p.StringOr("product_name", v.brand.Product)
	visitorName := names.Normalize(p.String("visitor_name"))
	businessType := p.String("business_type")
	question := p.String("question")
	kbAnswer := p.String("kb_answer")

	if visitorName != "" {
		st.SetName(visitorName)
		st.Visitor["visitor_name"] = visitorName
	}
	st.Visitor["last_intent"] = in
	if businessType != "" {
		st.Visitor["business_type"] = businessType
	}
	if question != "" {
		st.Visitor["last_question"] = question
	}

	reply := p.Reply()
	switch {
	case reply != "":
	case kbAnswer != "":
		reply = fmt.Sprintf("در مورد %s این‌طور می‌توانم توضیح بدهم: %s "+
			"اگر چیزی هنوز مبهم است، لطفاً دقیق‌تر بپرسید تا همان قسمت را روشن‌تر کنم.", product, kbAnswer)
	default:
		reply = v.template(in, product, visitorName, question)
	}
	st.Visitor["last_reply"] = reply

	if visitorName == "" {
		visitorName = st.Name()
	}
	if businessType == "" {
		businessType, _ = st.Visitor["business_type"].(string)
	}

	return Result{
		Reply:  reply,
		Domain: v.Name(),
		Intent: in,
		Payload: map[string]any{
			"intent":        in,
			"product_name":  product,
			"visitor_name":  visitorName,
			"business_type": businessType,
			"question":      question,
		},
	}
}

func (v *Visitor) template(in, product, visitorName, question string) string {
	switch in {
	case "intro":
		namePart := ""
		if visitorName != "" {
			namePart = visitorName + " عزیز، "
		}
		return fmt.Sprintf("%sسلام، من دستیار تلفنی %s هستم. "+
			"به شما کمک می‌کنم ببینید این ربات دقیقاً چه کمکی به کسب‌وکار شما می‌کند. "+
			"اول بفرمایید در چه نوع کسب‌وکاری فعال هستید و بیشتر چه کانالی برای نوبت‌گیری یا چت با مشتری دارید؛ تلفن، واتساپ یا شبکه‌های اجتماعی؟",
			namePart, product)

	case "needs":
		prefix := ""
		if visitorName != "" {
			prefix = "خیلی خوب. "
		}
		return prefix + "برای این‌که بهتر راهنمایی‌تان کنم، بفرمایید الان بزرگ‌ترین مشکل‌تان در ارتباط با مراجعین چیست؟ " +
			"مثلاً حجم زیاد پیام‌ها، جا افتادن نوبت، پاسخ‌گویی خارج از ساعت کاری یا چیز دیگری؟"

	case "product_info":
		return fmt.Sprintf("%s در عمل یک اپراتور هوشمند است که روی واتساپ یا کانال‌های دیگر شما می‌نشیند؛ "+
			"سوالات تکراری را جواب می‌دهد، نوبت‌گیری را خودکار می‌کند و مکالمات را برای شما ثبت می‌کند. "+
			"مزیتش این است که ۲۴ ساعته فعال است، خسته نمی‌شود و می‌تواند هم‌زمان با چند نفر صحبت کند، "+
			"بدون این‌که نیاز باشد شما یا منشی همیشه پای گوشی باشید.", product)

	case "pricing":
		// No concrete numbers; pricing depends on the plan.
		return fmt.Sprintf("قیمت %s معمولاً به تعداد کانال‌ها، حجم استفاده و امکاناتی که نیاز دارید بستگی دارد. "+
			"ما معمولاً یک دورهٔ آزمایشی یا پلن شروع سبک پیشنهاد می‌کنیم تا ببینید دقیقاً چقدر به‌دردتان می‌خورد، "+
			"بعد می‌شود درباره پلن نهایی تصمیم گرفت. اگر بفرمایید حدوداً روزانه چند پیام یا تماس دارید، "+
			"می‌توانم بهتر راهنمایی کنم چه مدلی مناسب شماست.", product)

	case "objection":
		base := fmt.Sprintf("نگرانی‌تان کاملاً قابل درک است. هدف %s جایگزین‌کردن انسان نیست، "+
			"بلکه گرفتن کارهای تکراری و خسته‌کننده از روی دوش شما و تیمتان است.", product)
		if question == "" {
			return base + " اگر دوست دارید بفرمایید دقیقاً از چه چیزی نگران هستید تا همان را شفاف توضیح بدهم."
		}
		return base + " اگر دقیق‌تر بفرمایید در مورد چه موضوعی تردید دارید، " +
			"مثلاً امنیت، کیفیت پاسخ‌گویی یا هزینه، می‌توانم همان بخش را شفاف‌تر توضیح بدهم."

	case "closing":
		return fmt.Sprintf("خلاصه اگر بخواهم بگویم، %s کمک می‌کند مدیریت پیام‌ها و نوبت‌گیری شما منظم و خودکار شود "+
			"و وقت آزاد بیشتری برای کارهای مهم‌تر داشته باشید. "+
			"اگر مایل باشید، می‌توانیم از یک دمو یا دورهٔ کوتاه شروع کنیم تا در عمل ببینید چقدر برای شما مناسب است.", product)

	default:
		return fmt.Sprintf("من دستیار فروش %s هستم. "+
			"می‌خواهید ابتدا درباره امکاناتش بگویم یا درباره قیمت و نحوه راه‌اندازی بپرسید؟", product)
	}
}
