package domain

import "time"

// 設定値の範囲とデフォルト値
const (
	MinConcurrency        = 1
	MaxConcurrency        = 10
	MinWordsPerScene      = 10
	MaxWordsPerScene      = 100
	DefaultConcurrency    = 4
	DefaultWordsPerScene  = 35
	DefaultStyleID        = "manga"
	DefaultLanguage       = "en"
	DefaultExportQuality  = "high"
	SettingsSchemaVersion = 1
)

// Settings はアプリケーション全体で 1 つだけ存在する設定レコードです。
type Settings struct {
	DefaultStyle         string    `json:"defaultStyle"`
	HighResMode          bool      `json:"highResMode"`
	MaxConcurrency       int       `json:"maxConcurrency"`
	DefaultWordsPerScene int       `json:"defaultWordsPerScene"`
	AutoSave             bool      `json:"autoSave"`
	DarkMode             bool      `json:"darkMode"`
	Language             string    `json:"language"`
	ExportQuality        string    `json:"exportQuality"`
	Notifications        bool      `json:"notifications"`
	UpdatedAt            time.Time `json:"updatedAt"`
	SchemaVersion        int       `json:"schemaVersion"`
}

// SettingsPatch は設定の部分更新です。JSON に含まれていたキーだけが非 nil になります。
type SettingsPatch struct {
	DefaultStyle         *string `json:"defaultStyle,omitempty"`
	HighResMode          *bool   `json:"highResMode,omitempty"`
	MaxConcurrency       *int    `json:"maxConcurrency,omitempty"`
	DefaultWordsPerScene *int    `json:"defaultWordsPerScene,omitempty"`
	AutoSave             *bool   `json:"autoSave,omitempty"`
	DarkMode             *bool   `json:"darkMode,omitempty"`
	Language             *string `json:"language,omitempty"`
	ExportQuality        *string `json:"exportQuality,omitempty"`
	Notifications        *bool   `json:"notifications,omitempty"`
}

// DefaultSettings はデフォルトの設定を返します。
func DefaultSettings() Settings {
	return Settings{
		DefaultStyle:         DefaultStyleID,
		HighResMode:          false,
		MaxConcurrency:       DefaultConcurrency,
		DefaultWordsPerScene: DefaultWordsPerScene,
		AutoSave:             true,
		DarkMode:             false,
		Language:             DefaultLanguage,
		ExportQuality:        DefaultExportQuality,
		Notifications:        true,
		SchemaVersion:        SettingsSchemaVersion,
	}
}

// Merge は patch を浅くマージし、数値の範囲を丸めた結果を返します。
func (s Settings) Merge(p SettingsPatch) Settings {
	setString(&s.DefaultStyle, p.DefaultStyle)
	setString(&s.Language, p.Language)
	setString(&s.ExportQuality, p.ExportQuality)
	setBool(&s.HighResMode, p.HighResMode)
	setBool(&s.AutoSave, p.AutoSave)
	setBool(&s.DarkMode, p.DarkMode)
	setBool(&s.Notifications, p.Notifications)
	if p.MaxConcurrency != nil {
		s.MaxConcurrency = *p.MaxConcurrency
	}
	if p.DefaultWordsPerScene != nil {
		s.DefaultWordsPerScene = *p.DefaultWordsPerScene
	}
	return s.Normalize()
}

// Normalize は数値設定を許容範囲に丸め、空の文字列設定をデフォルトで埋めます。
func (s Settings) Normalize() Settings {
	d := DefaultSettings()
	if s.MaxConcurrency == 0 {
		s.MaxConcurrency = d.MaxConcurrency
	}
	if s.DefaultWordsPerScene == 0 {
		s.DefaultWordsPerScene = d.DefaultWordsPerScene
	}
	s.MaxConcurrency = clamp(s.MaxConcurrency, MinConcurrency, MaxConcurrency)
	s.DefaultWordsPerScene = clamp(s.DefaultWordsPerScene, MinWordsPerScene, MaxWordsPerScene)
	if s.DefaultStyle == "" {
		s.DefaultStyle = d.DefaultStyle
	}
	if s.Language == "" {
		s.Language = d.Language
	}
	if s.ExportQuality == "" {
		s.ExportQuality = d.ExportQuality
	}
	s.SchemaVersion = SettingsSchemaVersion
	return s
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}
