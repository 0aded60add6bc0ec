package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// @Summary List own emergency contacts
// @Tags Contacts
// @Produce json
// @Security BearerAuth
// @Success 200 {array} ContactResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /contacts [get]
func (h *Handler) listContacts(c *gin.Context) {
	log := h.logger.WithField("method", "listContacts")

	contacts, err := h.contactService.ListContacts(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelsToContactResponses(contacts))
}

// @Summary Add an emergency contact
// @Description Marking a contact primary clears the flag on the previous primary contact.
// @Tags Contacts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param contact body ContactRequest true "Contact"
// @Success 201 {object} ContactResponse
// @Failure 400 {object} ErrorResponse "Invalid request body or validation error"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /contacts [post]
func (h *Handler) createContact(c *gin.Context) {
	var input ContactRequest
	log := h.logger.WithField("method", "createContact")
	if !h.bindJSON(c, log, &input) {
		return
	}

	contact := DTOToContactModel(input)
	if err := h.contactService.CreateContact(c.Request.Context(), actorFrom(c), contact); err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusCreated, ModelToContactResponse(contact))
}

// @Summary Update an emergency contact
// @Tags Contacts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Contact ID"
// @Param contact body ContactRequest true "Contact"
// @Success 200 {object} ContactResponse
// @Failure 400 {object} ErrorResponse "Invalid request body or validation error"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Contact belongs to another user"
// @Failure 404 {object} ErrorResponse "Contact not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /contacts/{id} [put]
func (h *Handler) updateContact(c *gin.Context) {
	log := h.logger.WithField("method", "updateContact")
	id, ok := parseID(c, log, "contact")
	if !ok {
		return
	}
	log = log.WithField("id", id)

	var input ContactRequest
	if !h.bindJSON(c, log, &input) {
		return
	}

	contact, err := h.contactService.UpdateContact(c.Request.Context(), actorFrom(c), id, DTOToContactModel(input))
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToContactResponse(contact))
}

// @Summary Delete an emergency contact
// @Tags Contacts
// @Security BearerAuth
// @Param id path string true "Contact ID"
// @Success 204 "No Content"
// @Failure 400 {object} ErrorResponse "Invalid contact ID"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Contact belongs to another user"
// @Failure 404 {object} ErrorResponse "Contact not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /contacts/{id} [delete]
func (h *Handler) deleteContact(c *gin.Context) {
	log := h.logger.WithField("method", "deleteContact")
	id, ok := parseID(c, log, "contact")
	if !ok {
		return
	}

	if err := h.contactService.DeleteContact(c.Request.Context(), actorFrom(c), id); err != nil {
		respondError(c, log.WithField("id", id), err)
		return
	}
	c.Status(http.StatusNoContent)
}
