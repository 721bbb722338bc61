package importer

import (
	"time"

	"github.com/ignite/lead-console/internal/domain"
)

// RawRow is one spreadsheet row as a header→value mapping. Column names vary
// wildly by source file (Portuguese and English exports), so nothing about
// the shape is assumed beyond string keys and string values.
type RawRow map[string]string

// Alias lists per canonical lead field. Matching is exact and case-sensitive
// on the header as authored; the export tools this feeds from emit stable
// header casing.
var (
	nameAliases           = []string{"Nome", "nome", "Name"}
	emailAliases          = []string{"Email", "email"}
	phoneAliases          = []string{"Telefone", "telefone", "Phone"}
	secondaryPhoneAliases = []string{"Telefone Secundário", "telefone_secundario", "Número de telefone secundário"}
	whatsappAliases       = []string{"WhatsApp", "whatsapp", "Número do WhatsApp"}
	formNameAliases       = []string{"Formulário", "formulario", "Nome do Formulário", "nome_formulario", "Form Name"}
	sourceAliases         = []string{"Fonte", "fonte"}
	channelAliases        = []string{"Canal", "canal"}
	stageAliases          = []string{"Estágio", "estagio", "Stage"}
	ownerAliases          = []string{"Proprietário", "proprietario", "Owner"}
	labelsAliases         = []string{"Rótulos", "rotulos", "Labels"}
	createdAtAliases      = []string{"Criado em", "criado_em", "Created At", "created_at", "Data de Criação", "Data"}
)

// pickField returns the first non-empty value among the aliases, in order.
func pickField(row RawRow, aliases []string) string {
	for _, alias := range aliases {
		if v := row[alias]; v != "" {
			return v
		}
	}
	return ""
}

// DefaultFormName derives the document-level form name from the first row of
// a file. Files that carry no form-name column at all fall back to the
// catch-all "Importação Geral" bucket.
func DefaultFormName(first RawRow) string {
	if v := pickField(first, formNameAliases); v != "" {
		return v
	}
	return domain.DefaultFormName
}

// MapRow maps one raw spreadsheet row onto a canonical lead. It is a pure
// function of its inputs: missing or malformed columns degrade to empty
// strings (or a nil CreatedAt), never an error. One bad row must never
// take down a whole import.
//
// The bulk path deliberately applies no stage default; only the manual
// single-lead creation path does (see service/lead). The asymmetry is
// inherited behavior, kept until product says otherwise.
func MapRow(row RawRow, defaultFormName string, importedAt time.Time) domain.Lead {
	lead := domain.Lead{
		Name:           pickField(row, nameAliases),
		Email:          pickField(row, emailAliases),
		Phone:          pickField(row, phoneAliases),
		SecondaryPhone: pickField(row, secondaryPhoneAliases),
		WhatsApp:       pickField(row, whatsappAliases),
		Source:         pickField(row, sourceAliases),
		Channel:        pickField(row, channelAliases),
		Stage:          pickField(row, stageAliases),
		Owner:          pickField(row, ownerAliases),
		Labels:         pickField(row, labelsAliases),
		FormName:       pickField(row, formNameAliases),
		ImportedAt:     importedAt,
	}
	if lead.FormName == "" {
		lead.FormName = defaultFormName
	}
	if t, ok := ParseCreatedAt(pickField(row, createdAtAliases)); ok {
		lead.CreatedAt = &t
	}
	return lead
}
