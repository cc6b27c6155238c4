package storage

import (
	"path/filepath"
	"strings"
)

// DefaultAllowedExtensions допустимые типы файлов материалов
var DefaultAllowedExtensions = []string{
	"pdf", "doc", "docx", "ppt", "pptx", "xls", "xlsx", "txt",
	"png", "jpg", "jpeg", "gif", "zip", "rar", "mp4", "mp3",
}

// ExtensionPolicy набор разрешённых расширений. Пустой набор разрешает всё.
type ExtensionPolicy map[string]struct{}

func NewExtensionPolicy(exts []string) ExtensionPolicy {
	p := make(ExtensionPolicy, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
		if e != "" {
			p[e] = struct{}{}
		}
	}
	return p
}

// Allows проверяет расширение файла без учёта регистра
func (p ExtensionPolicy) Allows(filename string) bool {
	if len(p) == 0 {
		return true
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" {
		return false
	}
	_, ok := p[ext]
	return ok
}
