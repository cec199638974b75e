package models

import "time"

// Book is a summary as served by the book catalogue API.
type Book struct {
	ID                   string      `json:"id" firestore:"id"`
	Author               string      `json:"author,omitempty" firestore:"author,omitempty"`
	Title                string      `json:"title" firestore:"title"`
	SubTitle             string      `json:"subTitle,omitempty" firestore:"subTitle,omitempty"`
	ImageLink            string      `json:"imageLink,omitempty" firestore:"imageLink,omitempty"`
	AudioLink            string      `json:"audioLink,omitempty" firestore:"audioLink,omitempty"`
	TotalRating          float64     `json:"totalRating,omitempty" firestore:"-"`
	AverageRating        float64     `json:"averageRating,omitempty" firestore:"-"`
	KeyIdeas             interface{} `json:"keyIdeas,omitempty" firestore:"-"` // string or []string upstream
	Type                 string      `json:"type,omitempty" firestore:"type,omitempty"`
	Status               string      `json:"status,omitempty" firestore:"status,omitempty"`
	SubscriptionRequired bool        `json:"subscriptionRequired" firestore:"subscriptionRequired"`
	Summary              string      `json:"summary,omitempty" firestore:"-"`
	Tags                 []string    `json:"tags,omitempty" firestore:"-"`
	BookDescription      string      `json:"bookDescription,omitempty" firestore:"-"`
	AuthorDescription    string      `json:"authorDescription,omitempty" firestore:"-"`
}

// LibraryEntry is a saved or finished book under users/{uid}/library or
// users/{uid}/finished.
type LibraryEntry struct {
	Book
	AddedAt    *time.Time `json:"addedAt,omitempty" firestore:"addedAt,omitempty"`
	FinishedAt *time.Time `json:"finishedAt,omitempty" firestore:"finishedAt,omitempty"`
}
