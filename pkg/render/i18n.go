package render

import (
	"errors"
	"fmt"
	"strings"
)

// Translator resolves a label key for a locale.
type Translator interface {
	Translate(locale, key string, args ...any) (string, error)
}

// ErrMissingTranslation is returned by Catalog when a key has no entry.
var ErrMissingTranslation = errors.New("render: missing translation")

// Label keys used by the built-in templates.
const (
	LabelFullName        = "placeholder.full_name"
	LabelEmail           = "placeholder.email"
	LabelSummary         = "placeholder.summary"
	LabelSectionSummary  = "section.summary"
	LabelSectionExp      = "section.experience"
	LabelSectionSkills   = "section.skills"
	LabelAddExperience   = "action.add_experience"
	LabelAddSkill        = "action.add_skill"
	LabelDelete          = "action.delete"
	LabelSave            = "action.save"
	LabelTemplatePicker  = "section.templates"
	LabelLoadFailed      = "status.load_failed"
	LabelNoExperience    = "placeholder.no_experience"
	LabelNoSkills        = "placeholder.no_skills"
	LabelPresent         = "placeholder.present"
	LabelExperienceName  = "placeholder.experience_name"
	LabelExperienceTitle = "placeholder.experience_position"
	LabelSaved           = "status.saved"
	LabelSaveFailed      = "status.save_failed"
	LabelSelectFailed    = "status.select_failed"
)

// Catalog is a map backed Translator keyed by locale then label key. Lookups
// fall back from "es-MX" to "es".
type Catalog map[string]map[string]string

// Translate implements Translator. Positional args are applied with
// fmt.Sprintf when present.
func (c Catalog) Translate(locale, key string, args ...any) (string, error) {
	for _, candidate := range localeChain(locale) {
		entries, ok := c[candidate]
		if !ok {
			continue
		}
		if msg, ok := entries[key]; ok && strings.TrimSpace(msg) != "" {
			if len(args) > 0 {
				return fmt.Sprintf(msg, args...), nil
			}
			return msg, nil
		}
	}
	return "", fmt.Errorf("%w: %s/%s", ErrMissingTranslation, locale, key)
}

func localeChain(locale string) []string {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return []string{"en"}
	}
	chain := []string{locale}
	if base, _, ok := strings.Cut(locale, "-"); ok {
		chain = append(chain, base)
	}
	return append(chain, "en")
}

// DefaultCatalog holds the English labels plus the Spanish ones the product
// originally shipped with.
func DefaultCatalog() Catalog {
	return Catalog{
		"en": {
			LabelFullName:        "Full name",
			LabelEmail:           "Email",
			LabelSummary:         "Summary not available",
			LabelSectionSummary:  "Summary",
			LabelSectionExp:      "Experience",
			LabelSectionSkills:   "Skills",
			LabelAddExperience:   "+ Add experience",
			LabelAddSkill:        "+ Add skill",
			LabelDelete:          "Delete",
			LabelSave:            "Save",
			LabelTemplatePicker:  "Choose a template",
			LabelLoadFailed:      "Could not load template %q",
			LabelNoExperience:    "No experience yet",
			LabelNoSkills:        "No skills yet",
			LabelPresent:         "present",
			LabelExperienceName:  "Company name",
			LabelExperienceTitle: "Position",
			LabelSaved:           "Saved",
			LabelSaveFailed:      "Could not save the resume. Please try again.",
			LabelSelectFailed:    "Could not store the selected template.",
		},
		"es": {
			LabelFullName:        "Nombre completo",
			LabelEmail:           "Correo electrónico",
			LabelSummary:         "Resumen no disponible",
			LabelSectionSummary:  "Resumen",
			LabelSectionExp:      "Experiencia",
			LabelSectionSkills:   "Habilidades",
			LabelAddExperience:   "+ Añadir experiencia",
			LabelAddSkill:        "+ Añadir habilidad",
			LabelDelete:          "Eliminar",
			LabelSave:            "Guardar",
			LabelTemplatePicker:  "Selecciona un template",
			LabelLoadFailed:      "No se pudo cargar el template %q",
			LabelNoExperience:    "Sin experiencia",
			LabelNoSkills:        "Sin habilidades",
			LabelPresent:         "actualidad",
			LabelExperienceName:  "Nombre de la empresa",
			LabelExperienceTitle: "Puesto",
			LabelSaved:           "Guardado",
			LabelSaveFailed:      "No se pudo guardar el currículum. Inténtalo de nuevo.",
			LabelSelectFailed:    "No se pudo guardar el template seleccionado.",
		},
	}
}

// Label resolves key through the options' translator, falling back to the
// default catalog and finally to the key itself.
func Label(opts RenderOptions, key string, args ...any) string {
	if opts.Translator != nil {
		if msg, err := opts.Translator.Translate(opts.Locale, key, args...); err == nil && strings.TrimSpace(msg) != "" {
			return msg
		}
	}
	if msg, err := defaultCatalog.Translate(opts.Locale, key, args...); err == nil {
		return msg
	}
	return key
}

// Labels resolves every built-in label key for templates. Dots in keys are
// replaced with underscores so templates can write labels.section_summary.
func Labels(opts RenderOptions) map[string]string {
	english := defaultCatalog["en"]
	out := make(map[string]string, len(english))
	for key := range english {
		if key == LabelLoadFailed {
			continue
		}
		out[strings.ReplaceAll(key, ".", "_")] = Label(opts, key)
	}
	return out
}

var defaultCatalog = DefaultCatalog()
