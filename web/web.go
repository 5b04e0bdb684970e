// Package web содержит HTML страницы формы поиска расписания
package web

import (
	"embed"
	"html/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Templates разбирает шаблоны страниц, имя шаблона совпадает с именем файла
func Templates() (*template.Template, error) {
	return template.ParseFS(templateFS, "templates/*.tmpl")
}
