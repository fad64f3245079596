// Package notify описывает канал пользовательских уведомлений.
// Реализация передаётся явно (WebSocket hub, CLI вывод, мок в тестах).
package notify

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// Notifier доставляет уведомление пользователю.
type Notifier interface {
	Notify(kind Kind, message string)
}

// Func позволяет использовать функцию как Notifier.
type Func func(kind Kind, message string)

func (f Func) Notify(kind Kind, message string) { f(kind, message) }

// Nop игнорирует уведомления.
type Nop struct{}

func (Nop) Notify(Kind, string) {}

// Multi рассылает уведомление нескольким получателям по порядку.
type Multi []Notifier

func (m Multi) Notify(kind Kind, message string) {
	for _, n := range m {
		n.Notify(kind, message)
	}
}
