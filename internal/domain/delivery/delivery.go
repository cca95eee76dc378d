package delivery

import "time"

// Delivery is a shipment record owned by the delivery service
type Delivery struct {
	ID           string    `json:"id,omitempty"`
	UserID       string    `json:"userId"`
	PaymentID    string    `json:"paymentId"`
	Address      string    `json:"address"`
	DeliveryTime time.Time `json:"deliveryTime"`
	GeoX         float64   `json:"geoX"`
	GeoY         float64   `json:"geoY"`
}

// ForUser keeps the deliveries belonging to userID, in their original order
func ForUser(all []Delivery, userID string) []Delivery {
	out := make([]Delivery, 0, len(all))
	for _, d := range all {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out
}

// Latest returns the delivery with the most recent DeliveryTime
func Latest(ds []Delivery) (Delivery, bool) {
	if len(ds) == 0 {
		return Delivery{}, false
	}
	latest := ds[0]
	for _, d := range ds[1:] {
		if d.DeliveryTime.After(latest.DeliveryTime) {
			latest = d
		}
	}
	return latest, true
}
