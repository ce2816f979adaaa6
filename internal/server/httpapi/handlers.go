package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/postboard/internal/common"
	"github.com/dmitrijs2005/postboard/internal/server/models"
	"github.com/go-chi/chi/v5"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type replyRequest struct {
	Content string `json:"content"`
}

type uploadRequest struct {
	Filename string `json:"filename"`
}

// Auth

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}

	res, err := s.users.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}

	res, err := s.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}

	res, err := s.users.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	msg, err := s.users.Logout(r.Context(), currentUserID(r))
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	writeMessage(w, msg)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.GetUser(r.Context(), currentUserID(r))
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Posts

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	params, err := listParamsFromQuery(r)
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}

	page, err := s.posts.ListPosts(r.Context(), params)
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	post, err := s.posts.GetPost(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) handleGetPostFile(w http.ResponseWriter, r *http.Request) {
	post, err := s.posts.GetPost(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}

	url, err := s.files.DownloadURL(r.Context(), post)
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var in models.PostInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}

	post, err := s.posts.CreatePost(r.Context(), currentUserID(r), in)
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	var patch models.PostPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}

	post, err := s.posts.UpdatePost(r.Context(), chi.URLParam(r, "id"), currentUserID(r), patch)
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	if err := s.posts.DeletePost(r.Context(), chi.URLParam(r, "id"), currentUserID(r)); err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	writeMessage(w, "post deleted")
}

func (s *Server) handleCreateReply(w http.ResponseWriter, r *http.Request) {
	var req replyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}

	reply, err := s.posts.CreateReply(r.Context(), chi.URLParam(r, "id"), currentUserID(r), req.Content)
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, reply)
}

func (s *Server) handleDeleteReply(w http.ResponseWriter, r *http.Request) {
	if err := s.posts.DeleteReply(r.Context(), chi.URLParam(r, "replyId"), currentUserID(r)); err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	writeMessage(w, "reply deleted")
}

func (s *Server) handleRequestUpload(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}

	ticket, err := s.files.RequestUpload(r.Context(), currentUserID(r), req.Filename)
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ticket)
}

// listParamsFromQuery fills defaults for absent parameters; present ones
// must be integers and are range-checked by the service.
func listParamsFromQuery(r *http.Request) (models.ListParams, error) {
	q := r.URL.Query()
	params := models.DefaultListParams()
	params.Search = q.Get("search")

	for name, dst := range map[string]*int{"page": &params.Page, "limit": &params.Limit} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return params, fmt.Errorf("%w: %s must be an integer", common.ErrorValidation, name)
		}
		*dst = v
	}
	return params, nil
}
