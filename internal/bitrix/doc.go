// Package bitrix — клиент методного REST API портала.
//
// Структура:
//   - client.go   — Client (общие HTTP клиенты, rate limiter) и Session (авторизация вызова)
//   - response.go — конверт ответа {result, error, error_description}
//   - errors.go   — типизированная ошибка вызова (*Error) и её виды
//   - transfer.go — скачивание и multipart-загрузка файлов
//
// Каждый вызов — ровно одна сетевая попытка, без retry. Таймауты
// раздельные: короткий для методов REST и длинный для передачи файлов.
//
//	client := bitrix.NewClient(bitrix.Config{CallTimeout: 30 * time.Second})
//	session := client.Session(domain.Auth{AccessToken: token, Domain: "portal.bitrix24.ru"})
//	resp, err := session.Call(ctx, "tasks.task.get", map[string]any{"taskId": 42})
package bitrix
