package handlers

import (
	"net/http"

	"furk/middleware"
	"furk/models"
	"furk/services/admin"
	"furk/services/auth"
	"furk/services/booking"
	"furk/services/catalog"
	"furk/services/lazyload"
	"furk/services/merchant"
	"furk/services/notification"
	"furk/services/profile"
	"furk/services/referral"
	"furk/services/review"
	"furk/services/transaction"
	"furk/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PageHandler builds the JSON page models for every role's screens.
type PageHandler struct {
	Auth          *auth.Service
	Bookings      booking.BookingService
	Catalog       catalog.CatalogService
	Merchants     merchant.MerchantService
	Notifications notification.NotificationService
	Reviews       review.ReviewService
	Referrals     referral.ReferralService
	Transactions  transaction.TransactionService
	Admin         admin.AdminService
	Profiles      profile.ProfileService
	Loaders       *lazyload.Registry
	PageSize      int
}

// homeFeatured is how many services the home page shows.
const homeFeatured = 6

// Home is public; it adapts to whether the caller is logged in.
func (h *PageHandler) Home(c *gin.Context) {
	body := gin.H{"page": "home"}
	if st := h.Auth.Status(c.Request.Context(), middleware.SessionID(c)); st.Authenticated {
		body["session"] = st
	}
	featured, err := h.Catalog.Services(c.Request.Context(), "", homeFeatured, 0, "")
	if err != nil {
		getLogger(c).Warn("failed to load featured services", zap.Error(err))
		featured = []models.PetService{}
	}
	body["featured"] = featured
	c.JSON(http.StatusOK, body)
}

func (h *PageHandler) ServicesPage() gin.HandlerFunc {
	return listPage(h.Loaders, h.PageSize, "services", catalog.ServicesFetch(h.Catalog), queryDeps("category"), nil)
}

// ServiceDetailPage shows one service with the first page of its reviews.
func (h *PageHandler) ServiceDetailPage() gin.HandlerFunc {
	reviews := listPage(h.Loaders, h.PageSize, "service-reviews", review.Fetch(h.Reviews), paramDeps("id"), func(c *gin.Context) gin.H {
		return gin.H{"service": c.MustGet("service")}
	})
	return func(c *gin.Context) {
		svc, err := h.Catalog.Service(tokenContext(c), c.Param("id"))
		if err != nil {
			backendError(c, err)
			return
		}
		c.Set("service", svc)
		reviews(c)
	}
}

func (h *PageHandler) CreateReview(c *gin.Context) {
	var in models.ReviewInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	out, err := h.Reviews.Create(tokenContext(c), c.Param("id"), in)
	if err != nil {
		backendError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *PageHandler) BookingsPage() gin.HandlerFunc {
	return listPage(h.Loaders, h.PageSize, "bookings", booking.OwnerFetch(h.Bookings), queryDeps("status"), nil)
}

func (h *PageHandler) CreateBooking(c *gin.Context) {
	var req models.BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	b, err := h.Bookings.Create(tokenContext(c), req)
	if err != nil {
		backendError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

func (h *PageHandler) CancelBooking(c *gin.Context) {
	if err := h.Bookings.Cancel(tokenContext(c), c.Param("id")); err != nil {
		backendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Booking cancelled"})
}

func (h *PageHandler) NotificationsPage() gin.HandlerFunc {
	return listPage(h.Loaders, h.PageSize, "notifications", h.Notifications.List, nil, nil)
}

func (h *PageHandler) MarkNotificationRead(c *gin.Context) {
	var err error
	if id := c.Param("id"); id == "all" {
		err = h.Notifications.MarkAllRead(tokenContext(c))
	} else {
		err = h.Notifications.MarkRead(tokenContext(c), id)
	}
	if err != nil {
		backendError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PageHandler) Profile(c *gin.Context) {
	p, err := h.Profiles.Get(tokenContext(c))
	if err != nil {
		backendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"page": "profile", "profile": p})
}

func (h *PageHandler) UpdateProfile(c *gin.Context) {
	var upd models.ProfileUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	p, err := h.Profiles.Update(tokenContext(c), upd)
	if err != nil {
		backendError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// MerchantDashboard includes the session's gating flags so the page can
// prompt unverified merchants and those without business hours.
func (h *PageHandler) MerchantDashboard(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	d, err := h.Merchants.Dashboard(tokenContext(c))
	if err != nil {
		backendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"page":             "merchant-dashboard",
		"dashboard":        d,
		"merchantStatus":   sess.MerchantStatus,
		"hasBusinessHours": sess.HasBusinessHours,
	})
}

func (h *PageHandler) MerchantListingsPage() gin.HandlerFunc {
	return listPage(h.Loaders, h.PageSize, "merchant-listings", h.Merchants.Listings, nil, nil)
}

func (h *PageHandler) CreateListing(c *gin.Context) {
	var in models.PetServiceInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	out, err := h.Merchants.CreateListing(tokenContext(c), in)
	if err != nil {
		backendError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *PageHandler) UpdateListing(c *gin.Context) {
	var in models.PetServiceInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	out, err := h.Merchants.UpdateListing(tokenContext(c), c.Param("id"), in)
	if err != nil {
		backendError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *PageHandler) DeleteListing(c *gin.Context) {
	if err := h.Merchants.DeleteListing(tokenContext(c), c.Param("id")); err != nil {
		backendError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PageHandler) MerchantBookingsPage() gin.HandlerFunc {
	return listPage(h.Loaders, h.PageSize, "merchant-bookings", booking.MerchantFetch(h.Bookings), queryDeps("status"), nil)
}

func (h *PageHandler) UpdateBookingStatus(c *gin.Context) {
	var upd models.BookingStatusUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	if err := h.Bookings.UpdateStatus(tokenContext(c), c.Param("id"), models.NormalizeBookingStatus(upd.Status)); err != nil {
		backendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Booking updated"})
}

func (h *PageHandler) BusinessHours(c *gin.Context) {
	hours, err := h.Merchants.BusinessHours(tokenContext(c))
	if err != nil {
		backendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"page": "merchant-business-hours", "hours": hours})
}

// SaveBusinessHours stores the week and refreshes the session's flags.
func (h *PageHandler) SaveBusinessHours(c *gin.Context) {
	var hours []models.BusinessHours
	if err := c.ShouldBindJSON(&hours); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	if err := h.Merchants.SetBusinessHours(tokenContext(c), hours); err != nil {
		backendError(c, err)
		return
	}
	if err := h.Auth.RefreshMerchantFlags(tokenContext(c), middleware.SessionID(c)); err != nil {
		getLogger(c).Warn("failed to refresh merchant flags", zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"hours": hours})
}

func (h *PageHandler) MerchantTransactionsPage() gin.HandlerFunc {
	return listPage(h.Loaders, h.PageSize, "merchant-transactions", h.Transactions.Merchant, nil, nil)
}

func (h *PageHandler) AdminApplicationsPage() gin.HandlerFunc {
	return listPage(h.Loaders, h.PageSize, "admin-applications", admin.ApplicationsFetch(h.Admin), queryDeps("status"), nil)
}

// DecideApplication handles approve and reject.
func (h *PageHandler) DecideApplication(approve bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var d models.ApplicationDecision
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&d); err != nil {
				utils.JSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
				return
			}
		}
		var err error
		if approve {
			err = h.Admin.Approve(tokenContext(c), c.Param("id"), d)
		} else {
			err = h.Admin.Reject(tokenContext(c), c.Param("id"), d)
		}
		if err != nil {
			backendError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Application updated", "approved": approve})
	}
}

func (h *PageHandler) AffiliateDashboard(c *gin.Context) {
	d, err := h.Referrals.Dashboard(tokenContext(c))
	if err != nil {
		backendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"page": "affiliate-dashboard", "dashboard": d})
}

func (h *PageHandler) AffiliateReferralsPage() gin.HandlerFunc {
	return listPage(h.Loaders, h.PageSize, "affiliate-referrals", h.Referrals.List, nil, nil)
}

func (h *PageHandler) AffiliateTransactionsPage() gin.HandlerFunc {
	return listPage(h.Loaders, h.PageSize, "affiliate-transactions", h.Transactions.Affiliate, nil, nil)
}

// ValidateReferral lets the sign-up form check a code as it is typed.
func (h *PageHandler) ValidateReferral(c *gin.Context) {
	v, err := h.Referrals.Validate(c.Request.Context(), c.Query("code"))
	if err != nil {
		backendError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}
