package apub

import "strings"

// Kind — одно из трёх семейств федеративных записей.
type Kind string

const (
	KindActor    Kind = "actor"
	KindObject   Kind = "object"
	KindActivity Kind = "activity"
)

// Пути семейств относительно базового URL инстанса.
var kindPaths = map[Kind]string{
	KindActor:    "/ap/u",
	KindObject:   "/ap/o",
	KindActivity: "/ap/s",
}

// Path возвращает префикс пути семейства k.
func (k Kind) Path() string { return kindPaths[k] }

// ToURI строит полный URI записи из базового URL, семейства и короткого id.
func ToURI(baseURL string, k Kind, shortID string) string {
	return strings.TrimSuffix(baseURL, "/") + k.Path() + "/" + shortID
}

// ShortID извлекает короткий id — последний сегмент пути URI.
// Для строки без '/' возвращает её саму, что позволяет передавать короткие
// id туда, где ожидается идентификатор любого вида.
func ShortID(uri string) string {
	if i := strings.LastIndexByte(uri, '/'); i >= 0 {
		return uri[i+1:]
	}
	return uri
}

// IsURI сообщает, является ли идентификатор полным URI.
func IsURI(id string) bool {
	return strings.HasPrefix(id, "http://") || strings.HasPrefix(id, "https://")
}
