package i18n

import (
	"strings"
	"sync"
)

// Translator retrieves localized messages for Issue codes.
// data provides optional values to embed in the message; placeholders are
// written as {key} (for example "{name}" or "{value}").
type Translator interface {
	Message(code string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

var catalog = map[string]map[string]string{
	"en": {
		"schema_locked":            "The schema has already been locked and it cannot be changed",
		"duplicate_schema":         `The schema "{name}" already exists`,
		"duplicate_property":       `The property "{name}" has already been defined`,
		"invalid_type":             `The data type must be one of number, string, list, map, unique, datetime, modtime, boolean, but "{value}" given`,
		"property_not_defined":     `The property "{name}" must be defined by Define()`,
		"invalid_value":            `The value of property "{name}" is invalid: {value}`,
		"schema_not_found":         `The schema "{name}" has not been created`,
		"value_change_not_allowed": `The value of property "{name}" cannot be changed`,
		"invalid_default":          `The default value "{value}" of property "{name}" is invalid`,
		"invalid_max":              `The max constraint "{value}" of property "{name}" is invalid`,
		"invalid_min":              `The min constraint "{value}" of property "{name}" is invalid`,
		"invalid_nested_schema":    `The nested schema of property "{name}" must be a schema`,
		"invalid_validator":        `The validator of property "{name}" must be a function`,
		"missing_value":            `The property "{name}" has no value and no default`,
		"parse_error":              "parse error",
		"duplicate_key":            `The key "{name}" appears more than once`,
	},
	"ja": {
		"schema_locked":            "スキーマはロックされているため変更できません",
		"duplicate_schema":         `スキーマ "{name}" は既に存在します`,
		"duplicate_property":       `プロパティ "{name}" は既に定義されています`,
		"invalid_type":             `データ型が不正です: "{value}"`,
		"property_not_defined":     `プロパティ "{name}" は定義されていません`,
		"invalid_value":            `プロパティ "{name}" の値が不正です: {value}`,
		"schema_not_found":         `スキーマ "{name}" は作成されていません`,
		"value_change_not_allowed": `プロパティ "{name}" の値は変更できません`,
		"invalid_default":          `プロパティ "{name}" のデフォルト値 "{value}" が不正です`,
		"invalid_max":              `プロパティ "{name}" の最大値 "{value}" が不正です`,
		"invalid_min":              `プロパティ "{name}" の最小値 "{value}" が不正です`,
		"invalid_nested_schema":    `プロパティ "{name}" のネストスキーマが不正です`,
		"invalid_validator":        `プロパティ "{name}" の検証関数が不正です`,
		"missing_value":            `プロパティ "{name}" に値もデフォルトもありません`,
		"parse_error":              "解析エラー",
		"duplicate_key":            `キー "{name}" が重複しています`,
	},
}

func (t dictTranslator) Message(code string, data map[string]string) string {
	msg, ok := catalog[t.lang][code]
	if !ok {
		if msg, ok = catalog["en"][code]; !ok {
			return code
		}
	}
	if len(data) == 0 {
		return msg
	}
	pairs := make([]string, 0, len(data)*2)
	for k, v := range data {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}

var (
	mu                           = sync.RWMutex{}
	currentTranslator Translator = dictTranslator{lang: "en"}
)

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if lang != "ja" {
		lang = "en"
	}
	mu.Lock()
	currentTranslator = dictTranslator{lang: lang}
	mu.Unlock()
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	mu.Lock()
	defer mu.Unlock()
	if tr == nil {
		currentTranslator = dictTranslator{lang: "en"}
		return
	}
	currentTranslator = tr
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string {
	mu.RLock()
	tr := currentTranslator
	mu.RUnlock()
	return tr.Message(code, data)
}
