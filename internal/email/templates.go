package email

import (
	"fmt"
	"html/template"
	"strings"
	"sync"
)

// TemplateManager реализует TemplateRenderer для управления шаблонами email
type TemplateManager struct {
	templates map[string]*template.Template
	mutex     sync.RWMutex
}

// NewTemplateManager создает новый менеджер шаблонов со встроенными шаблонами
func NewTemplateManager() *TemplateManager {
	tm := &TemplateManager{
		templates: make(map[string]*template.Template),
	}
	for name, body := range builtinTemplates {
		if err := tm.AddTemplate(name, body); err != nil {
			panic(fmt.Sprintf("builtin email template %s: %v", name, err))
		}
	}
	return tm
}

// Render рендерит шаблон с данными
func (tm *TemplateManager) Render(templateName string, data TemplateData) (string, error) {
	tm.mutex.RLock()
	tpl, exists := tm.templates[templateName]
	tm.mutex.RUnlock()

	if !exists {
		return "", fmt.Errorf("template not found: %s", templateName)
	}

	var buf strings.Builder
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

// AddTemplate добавляет шаблон в менеджер
func (tm *TemplateManager) AddTemplate(name string, templateStr string) error {
	tpl, err := template.New(name).Parse(templateStr)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	tm.mutex.Lock()
	tm.templates[name] = tpl
	tm.mutex.Unlock()

	return nil
}

const reconciliationTemplate = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
  <h2 style="color: #b00020;">Retrait à rapprocher manuellement</h2>
  <p>Le transfert ci-dessous a été exécuté par l'opérateur mais n'a pas été enregistré dans le registre local.</p>
  <table cellpadding="6" style="border-collapse: collapse;">
    <tr><td><b>Structure</b></td><td>{{.StructureName}} ({{.StructureID}})</td></tr>
    <tr><td><b>Transaction</b></td><td>{{.TransactionID}}</td></tr>
    {{if .GatewayReference}}<tr><td><b>Référence opérateur</b></td><td>{{.GatewayReference}}</td></tr>{{end}}
    <tr><td><b>Montant</b></td><td>{{.Amount}} FCFA</td></tr>
    <tr><td><b>Moyen</b></td><td>{{.Method}}</td></tr>
    <tr><td><b>Téléphone</b></td><td>{{.Phone}}</td></tr>
    <tr><td><b>Étape</b></td><td>{{.Stage}}</td></tr>
    <tr><td><b>Cause</b></td><td>{{.Reason}}</td></tr>
    <tr><td><b>Date</b></td><td>{{.At}}</td></tr>
  </table>
</body>
</html>`

var builtinTemplates = map[string]string{
	TemplateReconciliation: reconciliationTemplate,
}
