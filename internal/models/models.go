package models

// All lists every model in migration order.
func All() []any {
	return []any{
		&User{},
		&Follow{},
		&Post{},
		&Vote{},
		&Comment{},
		&Bookmark{},
		&Notification{},
		&Repository{},
		&Commit{},
	}
}
