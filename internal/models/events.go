package models

// Типы событий identity-провайдера, которые обрабатывает реконсилер.
const (
	IdentityEventUserCreated = "user.created"
	IdentityEventUserUpdated = "user.updated"
	IdentityEventUserDeleted = "user.deleted"
)

// IdentityEvent описывает полезную нагрузку webhook-события
// identity-провайдера. Payload декодируется только после проверки подписи.
type IdentityEvent struct {
	Type string            `json:"type"`
	Data IdentityEventData `json:"data"`
}

// IdentityEventData содержит данные пользователя из события.
type IdentityEventData struct {
	ID             string         `json:"id"`
	EmailAddresses []EmailAddress `json:"email_addresses"`
	FirstName      string         `json:"first_name"`
	LastName       string         `json:"last_name"`
	ImageURL       string         `json:"image_url"`
}

// EmailAddress один адрес из списка адресов пользователя.
type EmailAddress struct {
	EmailAddress string `json:"email_address"`
}

// PrimaryEmail возвращает первый адрес из события или пустую строку.
func (d IdentityEventData) PrimaryEmail() string {
	if len(d.EmailAddresses) == 0 {
		return ""
	}
	return d.EmailAddresses[0].EmailAddress
}
