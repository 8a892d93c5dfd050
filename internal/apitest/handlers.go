package apitest

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/crra-tempo/tempo-client/internal/export"
	"github.com/crra-tempo/tempo-client/internal/models"
	"github.com/crra-tempo/tempo-client/internal/protocol"
)

// validateToken answers the startup session check. Unknown or missing
// tokens never reach it; the middleware intercepts those with an auth
// sentinel.
func (s *Server) validateToken(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.accounts[c.GetString("user_id")]
	c.JSON(http.StatusOK, gin.H{"status": protocol.StatusLogged, "role": acct.role})
}

func (s *Server) listCodeCentres(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"codeCentres": s.codeCentres})
}

func (s *Server) listChercheurs(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := []models.Chercheur{}
	for _, acct := range s.accounts {
		if acct.role == models.RoleChercheur {
			list = append(list, acct.chercheur)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	c.JSON(http.StatusOK, gin.H{"message": "CHERCHEURs retrieved successfully", "data": list})
}

func (s *Server) createChercheur(c *gin.Context) {
	var req struct {
		FullName   string `json:"fullName"`
		Password   string `json:"password"`
		CodeCentre string `json:"codeCentre"`
		Code       string `json:"code"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request"})
		return
	}

	s.mu.Lock()
	for _, acct := range s.accounts {
		if acct.chercheur.FullName == req.FullName {
			s.mu.Unlock()
			c.JSON(http.StatusOK, gin.H{"message": protocol.MsgDuplicateName})
			return
		}
		if acct.role == models.RoleChercheur &&
			acct.chercheur.ResearcherCode == req.Code &&
			acct.chercheur.CenterCode == req.CodeCentre {
			s.mu.Unlock()
			c.JSON(http.StatusOK, gin.H{"message": protocol.MsgDuplicatePair})
			return
		}
	}
	s.mu.Unlock()

	s.SeedChercheur(req.FullName, req.Password, req.CodeCentre, req.Code)
	c.JSON(http.StatusCreated, gin.H{"message": protocol.MsgChercheurCreated})
}

// getChercheur serves the profile view. The upstream answers with the
// bare record, without the {message, data} envelope.
func (s *Server) getChercheur(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Chercheur not found"})
		return
	}
	c.JSON(http.StatusOK, acct.chercheur)
}

func (s *Server) setChercheurStatus(status models.Status) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		defer s.mu.Unlock()
		acct, ok := s.accounts[c.Param("id")]
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"message": "Chercheur not found"})
			return
		}
		acct.chercheur.Status = status
		c.JSON(http.StatusOK, gin.H{"message": "Chercheur updated successfully", "data": acct.chercheur})
	}
}

// projetsDispatch routes the read side of /projets by hand, because the
// historical paths put a static segment and an id at the same position.
func (s *Server) projetsDispatch(c *gin.Context) {
	parts := strings.Split(strings.Trim(c.Param("rest"), "/"), "/")
	switch {
	case len(parts) == 1 && parts[0] == "megaprojets":
		s.listMegaprojets(c)
	case len(parts) == 4 && parts[0] == "megaprojets" && parts[1] == "axe" && parts[3] == "activites":
		s.listActivites(c, parts[2])
	case len(parts) == 3 && parts[0] == "megaprojets" && parts[2] == "axes":
		s.listAxes(c, parts[1])
	case len(parts) == 2 && parts[0] == "activite":
		s.findActivite(c, parts[1])
	default:
		c.JSON(http.StatusNotFound, gin.H{"message": "not found"})
	}
}

func (s *Server) listMegaprojets(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := []models.Megaprojet{}
	for _, m := range s.megaprojets {
		list = append(list, *m)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	c.JSON(http.StatusOK, gin.H{"message": "MEGAPROJETs retrieved successfully", "data": list})
}

func (s *Server) createMegaprojet(c *gin.Context) {
	var req models.Megaprojet
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	req.ID = s.allocID()
	req.Status = models.StatusActive
	now := time.Now()
	req.CreatedAt = &now
	s.megaprojets[req.ID] = &req
	c.JSON(http.StatusCreated, gin.H{"message": "Megaprojet created successfully", "data": req})
}

func (s *Server) updateMegaprojet(c *gin.Context) {
	var req struct {
		Name        string `json:"name"`
		Sector      string `json:"sector"`
		Coordinator string `json:"coordinator"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.megaprojets[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Megaprojet not found"})
		return
	}
	m.Name, m.Sector, m.Coordinator = req.Name, req.Sector, req.Coordinator
	c.JSON(http.StatusOK, gin.H{"message": "Megaprojet updated successfully", "data": m})
}

// The toggle replies carry entity-named payload keys (megaprojet, axes,
// acti) instead of data; the upstream screens read exactly these.
func (s *Server) toggleMegaprojet(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.megaprojets[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Megaprojet not found"})
		return
	}
	m.Status = toggle(m.Status)
	c.JSON(http.StatusOK, gin.H{"message": "Megaprojet updated successfully", "megaprojet": m})
}

func (s *Server) deleteMegaprojet(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.megaprojets[c.Param("id")]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Megaprojet not found"})
		return
	}
	delete(s.megaprojets, c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"message": "Megaprojet deleted successfully"})
}

func (s *Server) listAxes(c *gin.Context, megaprojetID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := []models.Axe{}
	for _, axe := range s.axes {
		if axe.MegaprojetID == megaprojetID {
			list = append(list, *axe)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	c.JSON(http.StatusOK, gin.H{"message": protocol.MsgAxesRetrieved, "data": list})
}

func (s *Server) createAxe(c *gin.Context) {
	var req models.Axe
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	req.ID = s.allocID()
	req.Status = models.StatusActive
	s.axes[req.ID] = &req
	c.JSON(http.StatusCreated, gin.H{"message": "Axe created successfully", "data": req})
}

func (s *Server) updateAxe(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	axe, ok := s.axes[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Axe not found"})
		return
	}
	axe.Name = req.Name
	c.JSON(http.StatusOK, gin.H{"message": "Axe updated successfully", "data": axe})
}

func (s *Server) toggleAxe(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	axe, ok := s.axes[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Axe not found"})
		return
	}
	axe.Status = toggle(axe.Status)
	c.JSON(http.StatusOK, gin.H{"message": "Axe updated successfully", "axes": axe})
}

func (s *Server) deleteAxe(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.axes[c.Param("id")]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Axe not found"})
		return
	}
	delete(s.axes, c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"message": "Axe deleted successfully"})
}

func (s *Server) listActivites(c *gin.Context, axeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := []models.Activite{}
	for _, act := range s.activites {
		if act.AxeID == axeID {
			list = append(list, *act)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	c.JSON(http.StatusOK, gin.H{"message": protocol.MsgActivitesRetrieved, "data": list})
}

func (s *Server) findActivite(c *gin.Context, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, act := range s.activites {
		if act.Code == code {
			c.JSON(http.StatusOK, gin.H{"message": "Activite retrieved successfully", "data": act})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"message": "Activite not found"})
}

func (s *Server) createActivite(c *gin.Context) {
	var req struct {
		MegaprojetID string `json:"megaprojet_id"`
		AxeID        string `json:"axe_id"`
		CRRA         string `json:"CRRA"`
		Name         string `json:"ACTIVITE"`
		Code         string `json:"CodeActivite"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, act := range s.activites {
		if act.Code == req.Code {
			c.JSON(http.StatusOK, gin.H{"message": protocol.MsgDuplicateCode})
			return
		}
	}
	id := s.allocID()
	s.activites[id] = &models.Activite{
		ID: id, Name: req.Name, Code: req.Code, CRRA: req.CRRA,
		Status: models.StatusActive, AxeID: req.AxeID, MegaprojetID: req.MegaprojetID,
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Activite created successfully", "data": s.activites[id]})
}

func (s *Server) updateActivite(c *gin.Context) {
	var req struct {
		Name string `json:"ACTIVITE"`
		Code string `json:"CodeActivite"`
		CRRA string `json:"CRRA"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	act, ok := s.activites[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Activite not found"})
		return
	}
	for id, other := range s.activites {
		if id != act.ID && other.Code == req.Code {
			c.JSON(http.StatusOK, gin.H{"message": protocol.MsgDuplicateCode})
			return
		}
	}
	act.Name, act.Code, act.CRRA = req.Name, req.Code, req.CRRA
	c.JSON(http.StatusOK, gin.H{"message": "Activite updated successfully", "data": act})
}

func (s *Server) toggleActivite(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	act, ok := s.activites[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Activite not found"})
		return
	}
	act.Status = toggle(act.Status)
	c.JSON(http.StatusOK, gin.H{"message": "Activite updated successfully", "acti": act})
}

func (s *Server) deleteActivite(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.activites[c.Param("id")]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Activite not found"})
		return
	}
	delete(s.activites, c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"message": "Activite deleted successfully"})
}

func (s *Server) checkActivityLog(c *gin.Context) {
	userID := c.Query("user_id")
	activiteID := c.Query("activite_id")
	day := c.Query("day")

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range s.logs {
		if entry.UserID == userID && entry.ActiviteID == activiteID && entry.Day == day {
			c.JSON(http.StatusOK, gin.H{
				"message": "Activity log already exists for this day.",
				"data":    gin.H{"value": entry.Value},
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": protocol.MsgAllowed})
}

func (s *Server) createActivityLog(c *gin.Context) {
	var req models.ActivityLog
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range s.logs {
		if entry.UserID == req.UserID && entry.ActiviteID == req.ActiviteID && entry.Day == req.Day {
			c.JSON(http.StatusOK, gin.H{"message": "Activity log already exists for this day."})
			return
		}
	}
	req.ID = s.allocID()
	s.logs = append(s.logs, req)
	c.JSON(http.StatusCreated, gin.H{"message": protocol.MsgLogCreated})
}

// listLogs serves the history windows; days == 0 means everything.
func (s *Server) listLogs(days int) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Query("user_id")
		var cutoff string
		if days > 0 {
			cutoff = time.Now().AddDate(0, 0, -days).Format("2006-01-02")
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		list := []models.ActivityLog{}
		for _, entry := range s.logs {
			if entry.UserID != userID {
				continue
			}
			if cutoff != "" && entry.Day < cutoff {
				continue
			}
			list = append(list, entry)
		}
		c.JSON(http.StatusOK, gin.H{"message": "Logs retrieved successfully", "data": list})
	}
}

func (s *Server) weekTotals(c *gin.Context) {
	userID := c.Query("user_id")

	s.mu.Lock()
	defer s.mu.Unlock()
	totals := map[string]float64{}
	for _, entry := range s.logs {
		if entry.UserID == userID {
			totals[entry.Day] += entry.Value
		}
	}
	list := []models.DayTotal{}
	for day, total := range totals {
		list = append(list, models.DayTotal{Day: day, TotalHours: total})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Day < list[j].Day })
	c.JSON(http.StatusOK, gin.H{"message": "Totals retrieved successfully", "data": list})
}

func (s *Server) exportReport(c *gin.Context) {
	s.mu.Lock()
	payload, ok := s.exports[c.Param("endpoint")]
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "No data for this period"})
		return
	}
	c.Data(http.StatusOK, export.SpreadsheetMIME, payload)
}

func toggle(status models.Status) models.Status {
	if status == models.StatusActive {
		return models.StatusDisabled
	}
	return models.StatusActive
}
