package notifier

// TextNotifier defines a minimal text notification interface.
// It is intentionally small so different components can depend on it without
// importing concrete implementations (e.g. Telegram).
type TextNotifier interface {
	SendText(text string) error
}

// PhotoNotifier sends a rendered image with an optional caption.
type PhotoNotifier interface {
	SendPhoto(image []byte, caption string) error
}

// Notifier combines the text and photo channels a delivery target supports.
type Notifier interface {
	TextNotifier
	PhotoNotifier
}
