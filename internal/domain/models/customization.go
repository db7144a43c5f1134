package models

// Customization - оформление и флаги функций комнаты
type Customization struct {
	PrimaryColor    string `json:"primary_color" db:"primary_color" yaml:"primary_color"`
	BackgroundColor string `json:"background_color" db:"background_color" yaml:"background_color"`
	TextColor       string `json:"text_color" db:"text_color" yaml:"text_color"`
	AccentColor     string `json:"accent_color" db:"accent_color" yaml:"accent_color"`
	LogoURL         string `json:"logo_url" db:"logo_url" yaml:"logo_url,omitempty"`
	WelcomeMessage  string `json:"welcome_message" db:"welcome_message" yaml:"welcome_message,omitempty"`

	EnableChat        bool `json:"enable_chat" db:"enable_chat" yaml:"enable_chat"`
	EnableVideo       bool `json:"enable_video" db:"enable_video" yaml:"enable_video"`
	EnableScreenShare bool `json:"enable_screen_share" db:"enable_screen_share" yaml:"enable_screen_share"`
	EnableRecordings  bool `json:"enable_recordings" db:"enable_recordings" yaml:"enable_recordings"`
	EnableAnalytics   bool `json:"enable_analytics" db:"enable_analytics" yaml:"enable_analytics"`
	AutoRecord        bool `json:"auto_record" db:"auto_record" yaml:"auto_record"`
}

func DefaultCustomization() Customization {
	return Customization{
		PrimaryColor:      "#3b82f6",
		BackgroundColor:   "#111827",
		TextColor:         "#ffffff",
		AccentColor:       "#10b981",
		EnableChat:        true,
		EnableVideo:       true,
		EnableScreenShare: true,
		EnableAnalytics:   true,
	}
}

// CustomizationPatch перечисляет только известные настройки; nil поля не меняются
type CustomizationPatch struct {
	PrimaryColor    *string `json:"primary_color,omitempty" yaml:"primary_color,omitempty"`
	BackgroundColor *string `json:"background_color,omitempty" yaml:"background_color,omitempty"`
	TextColor       *string `json:"text_color,omitempty" yaml:"text_color,omitempty"`
	AccentColor     *string `json:"accent_color,omitempty" yaml:"accent_color,omitempty"`
	LogoURL         *string `json:"logo_url,omitempty" yaml:"logo_url,omitempty"`
	WelcomeMessage  *string `json:"welcome_message,omitempty" yaml:"welcome_message,omitempty"`

	EnableChat        *bool `json:"enable_chat,omitempty" yaml:"enable_chat,omitempty"`
	EnableVideo       *bool `json:"enable_video,omitempty" yaml:"enable_video,omitempty"`
	EnableScreenShare *bool `json:"enable_screen_share,omitempty" yaml:"enable_screen_share,omitempty"`
	EnableRecordings  *bool `json:"enable_recordings,omitempty" yaml:"enable_recordings,omitempty"`
	EnableAnalytics   *bool `json:"enable_analytics,omitempty" yaml:"enable_analytics,omitempty"`
	AutoRecord        *bool `json:"auto_record,omitempty" yaml:"auto_record,omitempty"`
}

func (p CustomizationPatch) Apply(to Customization) Customization {
	setString(&to.PrimaryColor, p.PrimaryColor)
	setString(&to.BackgroundColor, p.BackgroundColor)
	setString(&to.TextColor, p.TextColor)
	setString(&to.AccentColor, p.AccentColor)
	setString(&to.LogoURL, p.LogoURL)
	setString(&to.WelcomeMessage, p.WelcomeMessage)

	setBool(&to.EnableChat, p.EnableChat)
	setBool(&to.EnableVideo, p.EnableVideo)
	setBool(&to.EnableScreenShare, p.EnableScreenShare)
	setBool(&to.EnableRecordings, p.EnableRecordings)
	setBool(&to.EnableAnalytics, p.EnableAnalytics)
	setBool(&to.AutoRecord, p.AutoRecord)

	return to
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
