package checkout

import (
	"strings"
)

const (
	msgMissingData    = "Date lipsă sau invalide"
	msgInvalidEmail   = "Adresă de email invalidă"
	msgInvalidPhone   = "Număr de telefon invalid"
	msgMissingName    = "Numele și prenumele sunt obligatorii"
	msgMissingCompany = "Denumirea firmei și CUI-ul sunt obligatorii"
	msgMissingAddress = "Adresa de livrare este incompletă"
	msgMissingBilling = "Adresa de facturare este incompletă"
	msgInvalidType    = "Tip de client invalid"
	msgSaveFailed     = "A apărut o eroare la salvarea comenzii"
	msgGatewayFailed  = "Eroare la inițierea plății: "
	msgProcessFailed  = "A apărut o eroare la procesarea comenzii"
	msgValidateFailed = "Eroare la validarea coșului"
	msgMockPayment    = "Netopia nu este configurat. Folosind flux de plată simulat."
)

// ValidationError is the batch of customer input problems, reported together.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, ", ")
}
