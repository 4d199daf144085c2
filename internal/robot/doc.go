// Package robot — конвейер обработки вызовов роботов бизнес-процесса.
//
// # Обзор
//
// Робот получает от бизнес-процесса ID завершённой задачи и (в зависимости
// от режима) целевую CRM-сущность. Конвейер:
//
//	Resolver → Transfer → (SchemaInspector) → Updater → Reporter
//
//   - Resolver — определяет итоговый набор файлов результата задачи
//   - Transfer — скачивает файлы и (в режиме relocate) перекладывает их в папку диска
//   - SchemaInspector — определяет множественность поля сущности по схеме портала
//   - Updater — собирает значение поля и обновляет сущность
//   - Reporter — отправляет результат бизнес-процессу через event_token
//
// # Режимы
//
// Один параметризованный Pipeline вместо отдельного обработчика на каждый вариант:
//   - ModeResolve — только вернуть файлы и текст результата
//   - ModeRelocate — скопировать файлы результата в папку общего диска
//   - ModeAttach — записать файлы в поле сущности, множественность задана вызовом
//   - ModeAttachDetect — записать файлы в поле сущности, множественность из схемы
//
// Отдельно — AttachContact: поиск контакта по телефону и привязка к лиду/сделке.
//
// # Ошибки
//
// Невозможность установить минимальное состояние (задача не найдена, не
// получен список результатов) прерывает конвейер. Частичные сбои (комментарий
// результата, отдельный файл) только логируются и сужают набор данных.
// Ошибки обновления сущности оборачиваются в *UpdateError и не считаются
// ошибкой запроса. Ответ бизнес-процессу отправляется не более одного раза.
package robot
