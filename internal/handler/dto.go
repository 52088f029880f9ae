package handler

import (
	"time"

	"github.com/iliyamo/hotel-room-reservation/internal/model"
	"github.com/iliyamo/hotel-room-reservation/internal/service"
)

// ----- request bodies -----

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}

type createBookingReq struct {
	RoomID    string `json:"roomId"`
	UserID    string `json:"userId"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// updateBookingReq fields are optional; status accepts a name or a legacy
// numeric code.
type updateBookingReq struct {
	StartDate   *string `json:"startDate"`
	EndDate     *string `json:"endDate"`
	Status      *string `json:"status"`
	Recalculate bool    `json:"recalculatePrice"`
}

// ----- responses -----

type tokenResp struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
}

func toTokenResp(p service.TokenPair) tokenResp {
	return tokenResp{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    p.TokenType,
		ExpiresIn:    p.ExpiresIn,
		Scope:        p.Scope,
	}
}

type userResp struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName"`
	CreatedAt time.Time `json:"createdAt"`
}

type bookingResp struct {
	ID         string    `json:"id"`
	RoomID     string    `json:"roomId"`
	UserID     string    `json:"userId"`
	StartDate  string    `json:"startDate"`
	EndDate    string    `json:"endDate"`
	Nights     int       `json:"nights"`
	Status     string    `json:"status"`
	TotalPrice string    `json:"totalPrice"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func toBookingResp(b model.Booking) bookingResp {
	return bookingResp{
		ID:         b.ID,
		RoomID:     b.RoomID,
		UserID:     b.UserID,
		StartDate:  model.FormatDate(b.StartDate),
		EndDate:    model.FormatDate(b.EndDate),
		Nights:     b.Nights(),
		Status:     string(b.Status),
		TotalPrice: b.TotalPrice.StringFixed(2),
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
	}
}

func toBookingList(list []model.Booking) []bookingResp {
	out := make([]bookingResp, 0, len(list))
	for _, b := range list {
		out = append(out, toBookingResp(b))
	}
	return out
}

type historyResp struct {
	Upcoming  []bookingResp `json:"upcoming"`
	Current   []bookingResp `json:"current"`
	Completed []bookingResp `json:"completed"`
	Cancelled []bookingResp `json:"cancelled"`
	All       []bookingResp `json:"all"`
}

func toHistoryResp(h service.BookingHistory) historyResp {
	return historyResp{
		Upcoming:  toBookingList(h.Upcoming),
		Current:   toBookingList(h.Current),
		Completed: toBookingList(h.Completed),
		Cancelled: toBookingList(h.Cancelled),
		All:       toBookingList(h.All),
	}
}

type roomResp struct {
	ID         string `json:"id"`
	CategoryID string `json:"categoryId"`
	Name       string `json:"name"`
	Price      string `json:"price"`
	Discount   string `json:"discount"`
	Status     string `json:"status"`
	MaxPeople  int    `json:"maxPeople"`
}

func toRoomResp(r model.Room) roomResp {
	return roomResp{
		ID:         r.ID,
		CategoryID: r.CategoryID,
		Name:       r.Name,
		Price:      r.Price.StringFixed(2),
		Discount:   r.Discount.StringFixed(2),
		Status:     string(r.Status),
		MaxPeople:  r.Capacity,
	}
}
