package command

// Cart Commands
type AddToCart struct {
	ProductID int64 `json:"productId"`
}

type RemoveFromCart struct {
	ProductID int64 `json:"productId"`
}

// Order Commands
type PlaceOrder struct {
	Address string `json:"address"`
}

// Review Commands
type AddComment struct {
	ProductID int64  `json:"productId"`
	Content   string `json:"content"`
}

type AddRating struct {
	ProductID int64 `json:"productId"`
	Value     int   `json:"value"`
}

type DeleteComment struct {
	CommentID string `json:"commentId"`
}

type DeleteRating struct {
	RatingID string `json:"ratingId"`
}
