package models

// RewardNotification - одноразовое всплывающее уведомление о награде.
// Ставится в очередь при событии (открытие концовки, новый уровень трофея)
// и показывается читателю при следующем обращении, после чего исчезает.
type RewardNotification struct {
	Message       string `json:"message"`
	Amount        int    `json:"amount"`
	CurrencyLabel string `json:"currencyLabel"`
}
