package model

import "time"

// Account identifies the GitHub user whose repositories are indexed
type Account struct {
	Login      string
	ProfileURL string
}

// Repository holds the fields of a listed repository that the index uses
type Repository struct {
	Name        string
	FullName    string
	HTMLURL     string
	UpdatedAt   time.Time
	Private     bool
	Fork        bool
}

// FileInfo is a plain file entry from a repository contents listing
type FileInfo struct {
	Name    string
	Path    string
	HTMLURL string
	Size    int64
}
